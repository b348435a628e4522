package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lumacrm/lead-image-service/internal/http/handlers"
	httpmiddleware "github.com/lumacrm/lead-image-service/internal/http/middleware"
	"github.com/lumacrm/lead-image-service/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger        *logging.Logger
	LeadsHandler  *handlers.LeadsHandler
	ImagesHandler *handlers.ImagesHandler
	HealthHandler *handlers.HealthHandler

	// AdminAuthSecret guards destructive endpoints when set.
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		if cfg.HealthHandler != nil {
			public.Get("/health", cfg.HealthHandler.Check)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Route("/api", func(api chi.Router) {
		api.Route("/leads", func(r chi.Router) {
			r.Post("/", cfg.LeadsHandler.CreateLead)
			r.Get("/", cfg.LeadsHandler.ListLeads)

			r.Route("/{leadID}", func(r chi.Router) {
				r.Get("/", cfg.LeadsHandler.GetLead)
				r.Patch("/", cfg.LeadsHandler.UpdateLead)
				if cfg.AdminAuthSecret != "" {
					r.With(httpmiddleware.AdminJWT(cfg.AdminAuthSecret)).Delete("/", cfg.LeadsHandler.DeleteLead)
				} else {
					r.Delete("/", cfg.LeadsHandler.DeleteLead)
				}

				r.Route("/images", func(r chi.Router) {
					r.Post("/", cfg.ImagesHandler.Upload)
					r.Get("/", cfg.ImagesHandler.List)
					r.Post("/batch", cfg.ImagesHandler.BatchUpload)
					r.Get("/count", cfg.ImagesHandler.Count)

					r.Route("/{imageID}", func(r chi.Router) {
						r.Get("/", cfg.ImagesHandler.Get)
						r.Put("/", cfg.ImagesHandler.Replace)
						r.Patch("/", cfg.ImagesHandler.UpdateDescription)
						r.Delete("/", cfg.ImagesHandler.Delete)
					})
				})
			})
		})

		api.Post("/images/validate", cfg.ImagesHandler.Validate)
	})

	return r
}
