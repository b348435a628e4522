package gallery

import (
	"context"
	"fmt"
	"time"

	"github.com/lumacrm/lead-image-service/internal/leads"
)

// DeleteImage removes a single image. Deleting an already-gone image is
// ErrImageNotFound, not a silent success, so callers can detect duplicate
// delete requests.
func (s *Service) DeleteImage(ctx context.Context, leadID leads.LeadID, imageID leads.ImageID) (resp *DeleteImageResponse, err error) {
	start := time.Now()
	defer func() { s.observe("delete_image", start, err) }()

	exists, err := s.store.ImageExists(ctx, imageID)
	if err != nil {
		return nil, fmt.Errorf("gallery: check image: %w", err)
	}
	if !exists {
		return nil, leads.ErrImageNotFound
	}

	leadExists, err := s.store.LeadExists(ctx, leadID)
	if err != nil {
		return nil, fmt.Errorf("gallery: check lead: %w", err)
	}
	if !leadExists {
		return nil, leads.ErrLeadNotFound
	}

	belongs, err := s.store.ImageBelongsToLead(ctx, imageID, leadID)
	if err != nil {
		return nil, fmt.Errorf("gallery: check image ownership: %w", err)
	}
	if !belongs {
		// Owned by a different lead: answer as not found so existence is
		// never leaked across leads.
		return nil, leads.ErrImageNotFound
	}

	if err := s.store.DeleteImage(ctx, imageID); err != nil {
		return nil, err
	}

	// This path does not hold the full lead in memory, so the response
	// count comes straight from the store.
	remaining := s.refreshCount(ctx, leadID, 0)
	slots := remainingSlots(remaining)

	s.logger.Info("image deleted",
		"lead_id", leadID.String(),
		"image_id", imageID.String(),
		"remaining", remaining,
	)

	return &DeleteImageResponse{
		Success:             true,
		RemainingImageCount: remaining,
		AvailableSlots:      slots,
		Message:             fmt.Sprintf("Image deleted successfully. You now have %d image(s) and can add %d more.", remaining, slots),
	}, nil
}

// DeleteLead removes a lead together with every image it owns. The cascade
// is transactional: either the lead and all its images are gone, or nothing
// changed. Images are deleted before the lead so an interrupted cascade can
// never strand children without their aggregate.
func (s *Service) DeleteLead(ctx context.Context, leadID leads.LeadID) (resp *DeleteLeadResponse, err error) {
	start := time.Now()
	defer func() { s.observe("delete_lead", start, err) }()

	exists, err := s.store.LeadExists(ctx, leadID)
	if err != nil {
		return nil, fmt.Errorf("gallery: check lead: %w", err)
	}
	if !exists {
		return nil, leads.ErrLeadNotFound
	}

	// Once the cascade starts, caller cancellation no longer applies; a
	// half-finished cascade is worse than a completed one.
	writeCtx := context.WithoutCancel(ctx)
	imagesDeleted, err := s.store.DeleteLeadCascade(writeCtx, leadID)
	if err != nil {
		return nil, err
	}

	s.counts.Invalidate(writeCtx, leadID)

	s.logger.Info("lead deleted",
		"lead_id", leadID.String(),
		"images_deleted", imagesDeleted,
	)

	return &DeleteLeadResponse{
		LeadID:        leadID.String(),
		ImagesDeleted: imagesDeleted,
	}, nil
}
