package gallery

import (
	"context"
	"errors"
	"time"

	"github.com/lumacrm/lead-image-service/internal/leads"
)

// BatchItem is one entry in a batch upload.
type BatchItem struct {
	Payload     string
	FileName    string
	ContentType string
	Description string
}

// MaxBatchItems caps the caller-facing batch size.
const MaxBatchItems = 10

// BatchUpload attaches up to AvailableSlots images in one atomic persistence
// step. The input is clipped to the free slots: items beyond the cutoff are
// dropped silently rather than reported as per-item failures, keeping the
// accepted-versus-dropped boundary predictable. Per-item decode or domain
// failures skip that item and processing continues; only the accepted items
// are persisted, all of them or none.
func (s *Service) BatchUpload(ctx context.Context, leadID leads.LeadID, items []BatchItem) (resp *BatchUploadResponse, err error) {
	start := time.Now()
	defer func() { s.observe("batch_upload", start, err) }()

	for attempt := 0; ; attempt++ {
		resp, err = s.batchUploadOnce(ctx, leadID, items)
		if errors.Is(err, leads.ErrConflict) && attempt == 0 {
			s.metrics.ObserveConflict()
			s.logger.Info("batch upload lost a concurrent write race, retrying", "lead_id", leadID.String())
			continue
		}
		if _, ok := leads.IsCapacityError(err); ok {
			s.metrics.ObserveCapacityRejection()
		}
		return resp, err
	}
}

func (s *Service) batchUploadOnce(ctx context.Context, leadID leads.LeadID, items []BatchItem) (*BatchUploadResponse, error) {
	lead, err := s.store.GetLeadWithImages(ctx, leadID)
	if err != nil {
		return nil, err
	}

	count, err := s.counts.Authoritative(ctx, leadID)
	if err != nil {
		return nil, err
	}
	available := leads.MaxImagesPerLead - count
	if available <= 0 {
		return nil, &leads.CapacityError{Current: count, Max: leads.MaxImagesPerLead}
	}

	// Clip to the free slots, stable order.
	if len(items) > available {
		items = items[:available]
	}

	results := make([]BatchItemResult, 0, len(items))
	var accepted []*leads.Image

	for _, item := range items {
		img, err := leads.NewImage(s.codec, leadID, item.Payload, item.FileName, item.ContentType, item.Description)
		if err != nil {
			results = append(results, BatchItemResult{
				FileName:     item.FileName,
				Success:      false,
				ErrorCode:    batchErrInvalidImage,
				ErrorMessage: err.Error(),
			})
			continue
		}
		if err := lead.TryAddImage(img); err != nil {
			results = append(results, BatchItemResult{
				FileName:     item.FileName,
				Success:      false,
				ErrorCode:    batchErrDomainValidation,
				ErrorMessage: err.Error(),
			})
			continue
		}
		accepted = append(accepted, img)
		results = append(results, BatchItemResult{
			ImageID:  img.ID().String(),
			FileName: item.FileName,
			Success:  true,
		})
	}

	if len(accepted) > 0 {
		if err := s.store.SaveNewImages(ctx, accepted, lead); err != nil {
			return nil, err
		}
	}

	uploaded := len(accepted)
	newCount := s.refreshCount(ctx, leadID, count+uploaded)
	slots := remainingSlots(newCount)

	s.logger.Info("batch upload processed",
		"lead_id", leadID.String(),
		"uploaded", uploaded,
		"failed", len(results)-uploaded,
		"current_count", newCount,
	)

	return &BatchUploadResponse{
		LeadID:            leadID.String(),
		UploadedCount:     uploaded,
		FailedCount:       len(results) - uploaded,
		CurrentImageCount: newCount,
		RemainingSlots:    slots,
		Results:           results,
	}, nil
}
