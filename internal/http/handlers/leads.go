package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lumacrm/lead-image-service/internal/crm"
	"github.com/lumacrm/lead-image-service/internal/gallery"
	"github.com/lumacrm/lead-image-service/internal/leads"
	"github.com/lumacrm/lead-image-service/pkg/logging"
)

// LeadsHandler handles lead CRUD endpoints.
type LeadsHandler struct {
	crm     *crm.Service
	gallery *gallery.Service
	logger  *logging.Logger
}

// NewLeadsHandler creates a new leads handler.
func NewLeadsHandler(crmSvc *crm.Service, gallerySvc *gallery.Service, logger *logging.Logger) *LeadsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &LeadsHandler{
		crm:     crmSvc,
		gallery: gallerySvc,
		logger:  logger,
	}
}

// CreateLead registers a new lead.
// POST /api/leads
func (h *LeadsHandler) CreateLead(w http.ResponseWriter, r *http.Request) {
	var req crm.CreateLeadRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.crm.Create(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

// ListLeads returns leads filtered by status and free-text query.
// GET /api/leads
func (h *LeadsHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	filter := leads.ListFilter{
		Limit:  limit,
		Offset: offset,
		Query:  r.URL.Query().Get("q"),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := leads.ParseStatus(raw)
		if err != nil {
			badRequest(w, "invalid status filter")
			return
		}
		filter.Status = status
	}

	list, err := h.crm.List(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"leads":  list,
		"limit":  limit,
		"offset": offset,
	})
}

// GetLead returns a lead with its images and authoritative counts.
// GET /api/leads/{leadID}
func (h *LeadsHandler) GetLead(w http.ResponseWriter, r *http.Request) {
	leadID, ok := parseLeadID(w, r)
	if !ok {
		return
	}

	resp, err := h.crm.Get(r.Context(), leadID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// UpdateLead applies a partial update to a lead.
// PATCH /api/leads/{leadID}
func (h *LeadsHandler) UpdateLead(w http.ResponseWriter, r *http.Request) {
	leadID, ok := parseLeadID(w, r)
	if !ok {
		return
	}
	var req crm.UpdateLeadRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.crm.Update(r.Context(), leadID, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// DeleteLead removes a lead and all of its images.
// DELETE /api/leads/{leadID}
func (h *LeadsHandler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	leadID, ok := parseLeadID(w, r)
	if !ok {
		return
	}

	resp, err := h.gallery.DeleteLead(r.Context(), leadID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func parseLeadID(w http.ResponseWriter, r *http.Request) (leads.LeadID, bool) {
	leadID, err := leads.ParseLeadID(chi.URLParam(r, "leadID"))
	if err != nil {
		badRequest(w, "invalid leadID")
		return leads.LeadID{}, false
	}
	return leadID, true
}
