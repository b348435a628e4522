package gallery

import (
	"context"
	"fmt"
	"time"

	"github.com/lumacrm/lead-image-service/internal/leads"
)

// ReplaceRequest retires one image and installs another in its place.
type ReplaceRequest struct {
	LeadID      leads.LeadID
	OldImageID  leads.ImageID
	Payload     string
	FileName    string
	ContentType string
	Description string
}

// Replace swaps an existing image for a new one as a unit. It is the only
// workflow allowed to act on a lead already at the cap, because the remove
// and the append are applied together: a reader may transiently see the
// count one lower, never one higher.
func (s *Service) Replace(ctx context.Context, req ReplaceRequest) (resp *ReplaceResponse, err error) {
	start := time.Now()
	defer func() { s.observe("replace", start, err) }()

	// Ownership check first. An image owned by a different lead answers
	// exactly like a missing one.
	belongs, err := s.store.ImageBelongsToLead(ctx, req.OldImageID, req.LeadID)
	if err != nil {
		return nil, fmt.Errorf("gallery: check image ownership: %w", err)
	}
	if !belongs {
		return nil, leads.ErrImageNotFound
	}

	lead, err := s.store.GetLeadWithImages(ctx, req.LeadID)
	if err != nil {
		return nil, err
	}

	newImg, err := leads.NewImage(s.codec, req.LeadID, req.Payload, req.FileName, req.ContentType, req.Description)
	if err != nil {
		return nil, err
	}

	if err := lead.ReplaceImage(req.OldImageID, newImg); err != nil {
		return nil, err
	}

	// The destructive sequence has been decided; run it to completion even
	// if the caller goes away mid-swap.
	writeCtx := context.WithoutCancel(ctx)
	if err := s.store.SwapImage(writeCtx, req.OldImageID, newImg, lead); err != nil {
		return nil, err
	}

	count := s.refreshCount(writeCtx, req.LeadID, lead.ImageCount())

	s.logger.Info("image replaced",
		"lead_id", req.LeadID.String(),
		"old_image_id", req.OldImageID.String(),
		"new_image_id", newImg.ID().String(),
		"current_count", count,
	)

	return &ReplaceResponse{
		OldImageID: req.OldImageID.String(),
		NewImageID: newImg.ID().String(),
		LeadID:     req.LeadID.String(),
		FileName:   newImg.FileName(),
		Size:       newImg.FormattedSize(),
		Message:    fmt.Sprintf("Image replaced successfully. Image count remains at %d.", count),
	}, nil
}
