package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumacrm/lead-image-service/internal/gallery"
	"github.com/lumacrm/lead-image-service/internal/leads"
	"github.com/lumacrm/lead-image-service/pkg/logging"
)

// ImagesHandler handles the image gallery endpoints of a lead.
type ImagesHandler struct {
	gallery *gallery.Service
	logger  *logging.Logger
}

// NewImagesHandler creates a new images handler.
func NewImagesHandler(gallerySvc *gallery.Service, logger *logging.Logger) *ImagesHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ImagesHandler{
		gallery: gallerySvc,
		logger:  logger,
	}
}

// uploadBody is the JSON body for single uploads and replaces.
type uploadBody struct {
	ImageData   string `json:"imageData"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Description string `json:"description"`
}

// batchBody is the JSON body for batch uploads.
type batchBody struct {
	Images []uploadBody `json:"images"`
}

type descriptionBody struct {
	Description string `json:"description"`
}

type validateBody struct {
	ImageData string `json:"imageData"`
}

// Upload attaches a single image to a lead.
// POST /api/leads/{leadID}/images
func (h *ImagesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	leadID, ok := parseLeadID(w, r)
	if !ok {
		return
	}
	var body uploadBody
	if !decodeBody(w, r, &body) {
		return
	}
	if body.ImageData == "" {
		badRequest(w, "imageData is required")
		return
	}

	resp, err := h.gallery.Upload(r.Context(), gallery.UploadRequest{
		LeadID:      leadID,
		Payload:     body.ImageData,
		FileName:    body.FileName,
		ContentType: body.ContentType,
		Description: body.Description,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

// BatchUpload attaches up to the free-slot count of images in one step.
// POST /api/leads/{leadID}/images/batch
func (h *ImagesHandler) BatchUpload(w http.ResponseWriter, r *http.Request) {
	leadID, ok := parseLeadID(w, r)
	if !ok {
		return
	}
	var body batchBody
	if !decodeBody(w, r, &body) {
		return
	}
	if len(body.Images) == 0 {
		badRequest(w, "images is required")
		return
	}
	if len(body.Images) > gallery.MaxBatchItems {
		badRequest(w, "too many images in one batch")
		return
	}

	items := make([]gallery.BatchItem, 0, len(body.Images))
	for _, img := range body.Images {
		items = append(items, gallery.BatchItem{
			Payload:     img.ImageData,
			FileName:    img.FileName,
			ContentType: img.ContentType,
			Description: img.Description,
		})
	}

	resp, err := h.gallery.BatchUpload(r.Context(), leadID, items)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Replace swaps an existing image for a new one without changing the count.
// PUT /api/leads/{leadID}/images/{imageID}
func (h *ImagesHandler) Replace(w http.ResponseWriter, r *http.Request) {
	leadID, imageID, ok := parseImagePath(w, r)
	if !ok {
		return
	}
	var body uploadBody
	if !decodeBody(w, r, &body) {
		return
	}
	if body.ImageData == "" {
		badRequest(w, "imageData is required")
		return
	}

	resp, err := h.gallery.Replace(r.Context(), gallery.ReplaceRequest{
		LeadID:      leadID,
		OldImageID:  imageID,
		Payload:     body.ImageData,
		FileName:    body.FileName,
		ContentType: body.ContentType,
		Description: body.Description,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Delete removes one image from a lead.
// DELETE /api/leads/{leadID}/images/{imageID}
func (h *ImagesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	leadID, imageID, ok := parseImagePath(w, r)
	if !ok {
		return
	}

	resp, err := h.gallery.DeleteImage(r.Context(), leadID, imageID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// List returns a lead's images in upload order.
// GET /api/leads/{leadID}/images
func (h *ImagesHandler) List(w http.ResponseWriter, r *http.Request) {
	leadID, ok := parseLeadID(w, r)
	if !ok {
		return
	}

	resp, err := h.gallery.Images(r.Context(), leadID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Count returns the authoritative image count for a lead.
// GET /api/leads/{leadID}/images/count
func (h *ImagesHandler) Count(w http.ResponseWriter, r *http.Request) {
	leadID, ok := parseLeadID(w, r)
	if !ok {
		return
	}

	resp, err := h.gallery.Count(r.Context(), leadID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Get returns one image with its payload.
// GET /api/leads/{leadID}/images/{imageID}
func (h *ImagesHandler) Get(w http.ResponseWriter, r *http.Request) {
	leadID, imageID, ok := parseImagePath(w, r)
	if !ok {
		return
	}

	resp, err := h.gallery.Image(r.Context(), leadID, imageID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// UpdateDescription changes an image's description.
// PATCH /api/leads/{leadID}/images/{imageID}
func (h *ImagesHandler) UpdateDescription(w http.ResponseWriter, r *http.Request) {
	leadID, imageID, ok := parseImagePath(w, r)
	if !ok {
		return
	}
	var body descriptionBody
	if !decodeBody(w, r, &body) {
		return
	}

	resp, err := h.gallery.UpdateDescription(r.Context(), leadID, imageID, body.Description)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Validate dry-runs payload validation without attaching anything.
// POST /api/images/validate
func (h *ImagesHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var body validateBody
	if !decodeBody(w, r, &body) {
		return
	}
	if body.ImageData == "" {
		badRequest(w, "imageData is required")
		return
	}
	respondJSON(w, http.StatusOK, h.gallery.Validate(r.Context(), body.ImageData))
}

func parseImagePath(w http.ResponseWriter, r *http.Request) (leads.LeadID, leads.ImageID, bool) {
	leadID, err := leads.ParseLeadID(chi.URLParam(r, "leadID"))
	if err != nil {
		badRequest(w, "invalid leadID")
		return leads.LeadID{}, leads.ImageID{}, false
	}
	imageID, err := leads.ParseImageID(chi.URLParam(r, "imageID"))
	if err != nil {
		badRequest(w, "invalid imageID")
		return leads.LeadID{}, leads.ImageID{}, false
	}
	return leadID, imageID, true
}
