package gallery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lumacrm/lead-image-service/internal/leads"
)

// UploadRequest carries a single image upload.
type UploadRequest struct {
	LeadID      leads.LeadID
	Payload     string
	FileName    string
	ContentType string
	Description string
}

// Upload attaches one image to a lead. The authoritative count is checked
// before any decode work, and the aggregate re-checks capacity at append
// time; a concurrent writer that slips between the two is caught by the
// store's conditional write, which this workflow retries once.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (resp *UploadResponse, err error) {
	start := time.Now()
	defer func() { s.observe("upload", start, err) }()

	for attempt := 0; ; attempt++ {
		resp, err = s.uploadOnce(ctx, req)
		if errors.Is(err, leads.ErrConflict) && attempt == 0 {
			s.metrics.ObserveConflict()
			s.logger.Info("upload lost a concurrent write race, retrying", "lead_id", req.LeadID.String())
			continue
		}
		if ce, ok := leads.IsCapacityError(err); ok {
			s.metrics.ObserveCapacityRejection()
			s.logger.Info("upload rejected at capacity",
				"lead_id", req.LeadID.String(),
				"current", ce.Current,
				"max", ce.Max,
			)
		}
		return resp, err
	}
}

func (s *Service) uploadOnce(ctx context.Context, req UploadRequest) (*UploadResponse, error) {
	exists, err := s.store.LeadExists(ctx, req.LeadID)
	if err != nil {
		return nil, fmt.Errorf("gallery: check lead: %w", err)
	}
	if !exists {
		return nil, leads.ErrLeadNotFound
	}

	// Cheap check first: reject at capacity before paying for decode work.
	// The count is read from the store, never from a cached field.
	count, err := s.counts.Authoritative(ctx, req.LeadID)
	if err != nil {
		return nil, err
	}
	if count >= leads.MaxImagesPerLead {
		return nil, &leads.CapacityError{Current: count, Max: leads.MaxImagesPerLead}
	}

	lead, err := s.store.GetLeadWithImages(ctx, req.LeadID)
	if err != nil {
		return nil, err
	}

	img, err := leads.NewImage(s.codec, req.LeadID, req.Payload, req.FileName, req.ContentType, req.Description)
	if err != nil {
		return nil, err
	}

	// Second line of defense: the aggregate re-checks capacity against the
	// collection it just loaded. A concurrent writer racing past the count
	// check above is rejected here or by the conditional write below.
	if err := lead.TryAddImage(img); err != nil {
		return nil, err
	}

	if err := s.store.SaveNewImage(ctx, img, lead); err != nil {
		return nil, err
	}

	newCount := s.refreshCount(ctx, req.LeadID, lead.ImageCount())
	slots := remainingSlots(newCount)

	s.logger.Info("image uploaded",
		"lead_id", req.LeadID.String(),
		"image_id", img.ID().String(),
		"size_bytes", img.SizeBytes(),
		"current_count", newCount,
	)

	return &UploadResponse{
		ImageID:           img.ID().String(),
		LeadID:            req.LeadID.String(),
		FileName:          img.FileName(),
		ContentType:       img.ContentType(),
		Size:              img.FormattedSize(),
		CurrentImageCount: newCount,
		RemainingSlots:    slots,
		IsAtLimit:         newCount >= leads.MaxImagesPerLead,
		UploadedAt:        img.UploadedAt(),
		SuggestionMessage: suggestionMessage(slots),
	}, nil
}
