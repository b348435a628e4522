package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DB_MAX_CONNS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.DBMaxConns != 10 {
		t.Fatalf("expected default db max conns, got %d", cfg.DBMaxConns)
	}
	if cfg.CountCacheTTL != 5*time.Minute {
		t.Fatalf("expected default count cache ttl, got %s", cfg.CountCacheTTL)
	}
	if cfg.RedisTLS {
		t.Fatal("expected redis tls disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("COUNT_CACHE_TTL", "90s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("unexpected database url: %s", cfg.DatabaseURL)
	}
	if cfg.DBMaxConns != 25 {
		t.Fatalf("expected db max conns override, got %d", cfg.DBMaxConns)
	}
	if !cfg.RedisTLS {
		t.Fatal("expected redis tls enabled")
	}
	if cfg.CountCacheTTL != 90*time.Second {
		t.Fatalf("expected count cache ttl override, got %s", cfg.CountCacheTTL)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example.com" {
		t.Fatalf("unexpected cors origins: %#v", cfg.CORSAllowedOrigins)
	}
}

func TestGetEnvAsIntInvalid(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "not-a-number")
	cfg := Load()
	if cfg.DBMaxConns != 10 {
		t.Fatalf("expected fallback to default, got %d", cfg.DBMaxConns)
	}
}
