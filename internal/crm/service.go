// Package crm provides the lead lifecycle operations around the image
// workflows: create, update, fetch, and listing.
package crm

import (
	"context"
	"fmt"
	"time"

	"github.com/lumacrm/lead-image-service/internal/counts"
	"github.com/lumacrm/lead-image-service/internal/leads"
	"github.com/lumacrm/lead-image-service/pkg/logging"
)

// Service manages leads themselves; image mutations live in gallery.
type Service struct {
	store  leads.Store
	counts *counts.Service
	logger *logging.Logger
}

// NewService wires the lead service.
func NewService(store leads.Store, countSvc *counts.Service, logger *logging.Logger) *Service {
	if store == nil {
		panic("crm: store required")
	}
	if countSvc == nil {
		panic("crm: count service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, counts: countSvc, logger: logger}
}

// CreateLeadRequest carries the fields for a new lead.
type CreateLeadRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// UpdateLeadRequest is a partial update; empty fields are left alone.
type UpdateLeadRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Status string `json:"status"`
}

// LeadResponse is the list-view shape of a lead. ImageCount comes from the
// cached counter column; list views never pay for an authoritative count.
type LeadResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Status     string    `json:"status"`
	ImageCount int       `json:"imageCount"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ImageInfo is image metadata without its payload.
type ImageInfo struct {
	ImageID     string    `json:"imageId"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	SizeBytes   int       `json:"sizeBytes"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// LeadDetailResponse is the single-lead shape; its count is authoritative.
type LeadDetailResponse struct {
	LeadResponse
	RemainingSlots int         `json:"remainingSlots"`
	IsQualified    bool        `json:"isQualified"`
	IsClosed       bool        `json:"isClosed"`
	Images         []ImageInfo `json:"images"`
}

// Create validates and stores a new lead.
func (s *Service) Create(ctx context.Context, req CreateLeadRequest) (*LeadResponse, error) {
	lead, err := leads.NewLead(req.Name, req.Email, req.Phone)
	if err != nil {
		return nil, err
	}
	if err := s.store.InsertLead(ctx, lead); err != nil {
		return nil, err
	}
	s.logger.Info("lead created", "lead_id", lead.ID().String(), "email", lead.Email())
	resp := toResponse(lead, lead.ImageCount())
	return &resp, nil
}

// Update applies a partial contact/status update.
func (s *Service) Update(ctx context.Context, id leads.LeadID, req UpdateLeadRequest) (*LeadResponse, error) {
	lead, err := s.store.GetLead(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lead.UpdateContactInfo(req.Name, req.Email, req.Phone); err != nil {
		return nil, err
	}
	if req.Status != "" {
		status, err := leads.ParseStatus(req.Status)
		if err != nil {
			return nil, &leads.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", req.Status)}
		}
		if err := lead.UpdateStatus(status); err != nil {
			return nil, err
		}
	}
	if err := s.store.UpdateLead(ctx, lead); err != nil {
		return nil, err
	}
	s.logger.Info("lead updated", "lead_id", id.String())
	resp := toResponse(lead, lead.ImageCount())
	return &resp, nil
}

// Get fetches one lead with image metadata and an authoritative count.
func (s *Service) Get(ctx context.Context, id leads.LeadID) (*LeadDetailResponse, error) {
	lead, err := s.store.GetLeadWithImages(ctx, id)
	if err != nil {
		return nil, err
	}

	count, slots, err := s.counts.AvailableSlots(ctx, id)
	if err != nil {
		return nil, err
	}

	images := lead.Images()
	infos := make([]ImageInfo, 0, len(images))
	for _, img := range images {
		infos = append(infos, ImageInfo{
			ImageID:     img.ID().String(),
			FileName:    img.FileName(),
			ContentType: img.ContentType(),
			SizeBytes:   img.SizeBytes(),
			UploadedAt:  img.UploadedAt(),
		})
	}

	return &LeadDetailResponse{
		LeadResponse:   toResponse(lead, count),
		RemainingSlots: slots,
		IsQualified:    lead.IsQualified(),
		IsClosed:       lead.IsClosed(),
		Images:         infos,
	}, nil
}

// List returns leads matching the filter, cheap cached counts included.
func (s *Service) List(ctx context.Context, filter leads.ListFilter) ([]LeadResponse, error) {
	found, err := s.store.ListLeads(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]LeadResponse, 0, len(found))
	for _, lead := range found {
		out = append(out, toResponse(lead, lead.ImageCount()))
	}
	return out, nil
}

func toResponse(lead *leads.Lead, imageCount int) LeadResponse {
	return LeadResponse{
		ID:         lead.ID().String(),
		Name:       lead.Name(),
		Email:      lead.Email(),
		Phone:      lead.Phone(),
		Status:     lead.Status().String(),
		ImageCount: imageCount,
		CreatedAt:  lead.CreatedAt(),
		UpdatedAt:  lead.UpdatedAt(),
	}
}
