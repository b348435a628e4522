// Package gallery orchestrates the capacity-constrained image workflows:
// upload, batch upload, replace-at-capacity, and the delete paths. The Lead
// aggregate owns the capacity invariant; this package coordinates it with
// the store and the authoritative count service so the invariant survives
// concurrent callers.
package gallery

import (
	"context"
	"errors"
	"time"

	"github.com/lumacrm/lead-image-service/internal/counts"
	"github.com/lumacrm/lead-image-service/internal/leads"
	"github.com/lumacrm/lead-image-service/internal/observability/metrics"
	"github.com/lumacrm/lead-image-service/pkg/logging"
)

// Service runs the image workflows against a store.
type Service struct {
	store   leads.Store
	codec   leads.Codec
	counts  *counts.Service
	logger  *logging.Logger
	metrics *metrics.GalleryMetrics
}

// NewService wires the workflow service. Metrics may be nil.
func NewService(store leads.Store, codec leads.Codec, countSvc *counts.Service, logger *logging.Logger) *Service {
	if store == nil {
		panic("gallery: store required")
	}
	if codec == nil {
		panic("gallery: codec required")
	}
	if countSvc == nil {
		panic("gallery: count service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:  store,
		codec:  codec,
		counts: countSvc,
		logger: logger,
	}
}

// WithMetrics attaches workflow metrics.
func (s *Service) WithMetrics(m *metrics.GalleryMetrics) *Service {
	s.metrics = m
	return s
}

func (s *Service) observe(op string, start time.Time, err error) {
	status := "success"
	switch {
	case err == nil:
	case errors.Is(err, leads.ErrLeadNotFound), errors.Is(err, leads.ErrImageNotFound):
		status = "not_found"
	case leads.IsInvalidImage(err):
		status = "invalid_image"
	case errors.Is(err, leads.ErrConflict):
		status = "conflict"
	default:
		if _, ok := leads.IsCapacityError(err); ok {
			status = "capacity"
		} else {
			status = "error"
		}
	}
	s.metrics.ObserveWorkflow(op, status)
	s.metrics.ObserveLatency(op, time.Since(start).Seconds())
}

// refreshCount recomputes the authoritative count after a successful
// mutation. A refresh failure is logged, never surfaced: the mutation is
// already durable and the fallback count keeps the response usable.
func (s *Service) refreshCount(ctx context.Context, leadID leads.LeadID, fallback int) int {
	count, err := s.counts.Refresh(ctx, leadID)
	if err != nil {
		s.logger.Warn("post-mutation count refresh failed", "lead_id", leadID.String(), "error", err)
		return fallback
	}
	return count
}

func remainingSlots(count int) int {
	slots := leads.MaxImagesPerLead - count
	if slots < 0 {
		slots = 0
	}
	return slots
}
