package gallery

import (
	"context"
	"fmt"
	"time"

	"github.com/lumacrm/lead-image-service/internal/leads"
)

// Images lists a lead's images in upload order.
func (s *Service) Images(ctx context.Context, leadID leads.LeadID) (*ImagesResponse, error) {
	exists, err := s.store.LeadExists(ctx, leadID)
	if err != nil {
		return nil, fmt.Errorf("gallery: check lead: %w", err)
	}
	if !exists {
		return nil, leads.ErrLeadNotFound
	}

	images, err := s.store.ListImagesByLead(ctx, leadID)
	if err != nil {
		return nil, err
	}

	summaries := make([]ImageSummary, 0, len(images))
	for _, img := range images {
		summaries = append(summaries, summarize(img, true))
	}
	return &ImagesResponse{
		LeadID:         leadID.String(),
		Count:          len(images),
		RemainingSlots: remainingSlots(len(images)),
		Images:         summaries,
	}, nil
}

// Count reports the authoritative image count for a lead.
func (s *Service) Count(ctx context.Context, leadID leads.LeadID) (*CountResponse, error) {
	exists, err := s.store.LeadExists(ctx, leadID)
	if err != nil {
		return nil, fmt.Errorf("gallery: check lead: %w", err)
	}
	if !exists {
		return nil, leads.ErrLeadNotFound
	}

	count, slots, err := s.counts.AvailableSlots(ctx, leadID)
	if err != nil {
		return nil, err
	}
	return &CountResponse{
		LeadID:         leadID.String(),
		Count:          count,
		RemainingSlots: slots,
		IsAtLimit:      count >= leads.MaxImagesPerLead,
	}, nil
}

// Image fetches one image with its payload. Ownership is checked first so a
// cross-lead lookup answers exactly like a missing image.
func (s *Service) Image(ctx context.Context, leadID leads.LeadID, imageID leads.ImageID) (*ImageSummary, error) {
	belongs, err := s.store.ImageBelongsToLead(ctx, imageID, leadID)
	if err != nil {
		return nil, fmt.Errorf("gallery: check image ownership: %w", err)
	}
	if !belongs {
		return nil, leads.ErrImageNotFound
	}

	img, err := s.store.GetImage(ctx, imageID)
	if err != nil {
		return nil, err
	}
	summary := summarize(img, true)
	return &summary, nil
}

// UpdateDescription replaces an image's free-text description.
func (s *Service) UpdateDescription(ctx context.Context, leadID leads.LeadID, imageID leads.ImageID, description string) (*ImageSummary, error) {
	belongs, err := s.store.ImageBelongsToLead(ctx, imageID, leadID)
	if err != nil {
		return nil, fmt.Errorf("gallery: check image ownership: %w", err)
	}
	if !belongs {
		return nil, leads.ErrImageNotFound
	}

	img, err := s.store.GetImage(ctx, imageID)
	if err != nil {
		return nil, err
	}
	img.UpdateDescription(description)
	if err := s.store.UpdateImageDescription(ctx, img); err != nil {
		return nil, err
	}

	summary := summarize(img, false)
	return &summary, nil
}

// Validate dry-runs payload validation without touching any lead.
func (s *Service) Validate(ctx context.Context, payload string) *ValidateResponse {
	data, err := s.codec.Decode(payload)
	if err != nil {
		return &ValidateResponse{Valid: false, Reason: "payload is not valid base64"}
	}
	if len(data) == 0 {
		return &ValidateResponse{Valid: false, Reason: "decoded payload is empty"}
	}
	if len(data) > leads.MaxImageSizeBytes {
		return &ValidateResponse{
			Valid:     false,
			SizeBytes: len(data),
			Size:      formatSize(len(data)),
			Reason:    fmt.Sprintf("decoded size exceeds limit of %d bytes", leads.MaxImageSizeBytes),
		}
	}
	return &ValidateResponse{
		Valid:               true,
		SizeBytes:           len(data),
		Size:                formatSize(len(data)),
		DetectedContentType: s.codec.SniffContentType(data),
	}
}

func summarize(img *leads.Image, includeData bool) ImageSummary {
	var modified *time.Time
	if m, ok := img.ModifiedAt(); ok {
		modified = &m
	}
	summary := ImageSummary{
		ImageID:     img.ID().String(),
		FileName:    img.FileName(),
		ContentType: img.ContentType(),
		SizeBytes:   img.SizeBytes(),
		Size:        img.FormattedSize(),
		Description: img.Description(),
		UploadedAt:  img.UploadedAt(),
		ModifiedAt:  modified,
	}
	if includeData {
		summary.Data = img.Data()
	}
	return summary
}
