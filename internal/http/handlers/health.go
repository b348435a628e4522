package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lumacrm/lead-image-service/pkg/logging"
)

// Pinger reports backend liveness. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service and dependency health.
type HealthHandler struct {
	db     Pinger
	redis  *redis.Client
	logger *logging.Logger
}

// NewHealthHandler creates a new health handler. Both dependencies are
// optional; absent ones are reported as "disabled".
func NewHealthHandler(db Pinger, rdb *redis.Client, logger *logging.Logger) *HealthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &HealthHandler{
		db:     db,
		redis:  rdb,
		logger: logger,
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Check reports aggregate health. A failing database makes the service
// unhealthy; a failing cache only degrades it.
// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status: "ok",
		Checks: map[string]string{},
	}

	if h.db == nil {
		resp.Checks["database"] = "disabled"
	} else if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("database health check failed", "error", err)
		resp.Checks["database"] = "down"
		resp.Status = "unhealthy"
	} else {
		resp.Checks["database"] = "ok"
	}

	if h.redis == nil {
		resp.Checks["cache"] = "disabled"
	} else if err := h.redis.Ping(ctx).Err(); err != nil {
		h.logger.Warn("cache health check failed", "error", err)
		resp.Checks["cache"] = "down"
		if resp.Status == "ok" {
			resp.Status = "degraded"
		}
	} else {
		resp.Checks["cache"] = "ok"
	}

	status := http.StatusOK
	if resp.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, resp)
}
