package main

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/lumacrm/lead-image-service/internal/api/router"
	appconfig "github.com/lumacrm/lead-image-service/internal/config"
	"github.com/lumacrm/lead-image-service/internal/counts"
	"github.com/lumacrm/lead-image-service/internal/crm"
	"github.com/lumacrm/lead-image-service/internal/gallery"
	"github.com/lumacrm/lead-image-service/internal/http/handlers"
	"github.com/lumacrm/lead-image-service/internal/imaging"
	"github.com/lumacrm/lead-image-service/internal/leads"
	"github.com/lumacrm/lead-image-service/internal/observability/metrics"
	"github.com/lumacrm/lead-image-service/pkg/logging"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting lead-image-service API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	// Connect to Postgres
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DBConnectTimout)
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = int32(cfg.DBMaxConns)
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	cancel()
	defer pool.Close()

	// Redis is optional; the count cache degrades to Postgres without it.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		rdb = redis.NewClient(opts)
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unavailable, count cache disabled", "error", err)
			rdb = nil
		}
		pingCancel()
	}

	// Metrics registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	galleryMetrics := metrics.NewGalleryMetrics(registry)

	// Initialize stores and services
	store := leads.NewPostgresStore(pool)
	codec := imaging.NewBase64Codec()
	countSvc := counts.NewService(store, rdb, logger).WithTTL(cfg.CountCacheTTL)
	gallerySvc := gallery.NewService(store, codec, countSvc, logger).WithMetrics(galleryMetrics)
	crmSvc := crm.NewService(store, countSvc, logger)

	// Initialize handlers
	leadsHandler := handlers.NewLeadsHandler(crmSvc, gallerySvc, logger)
	imagesHandler := handlers.NewImagesHandler(gallerySvc, logger)
	healthHandler := handlers.NewHealthHandler(pool, rdb, logger)

	// Setup router
	routerCfg := &router.Config{
		Logger:             logger,
		LeadsHandler:       leadsHandler,
		ImagesHandler:      imagesHandler,
		HealthHandler:      healthHandler,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
