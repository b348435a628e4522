package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lumacrm/lead-image-service/internal/leads"
	"github.com/lumacrm/lead-image-service/pkg/logging"
)

// errorResponse is the JSON body for every error status.
type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// writeError maps domain errors onto HTTP statuses. Unknown errors are
// logged and reported as a plain 500 with no detail leaked.
func writeError(w http.ResponseWriter, logger *logging.Logger, err error) {
	switch {
	case errors.Is(err, leads.ErrLeadNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: "lead not found", Code: "LEAD_NOT_FOUND"})
	case errors.Is(err, leads.ErrImageNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: "image not found", Code: "IMAGE_NOT_FOUND"})
	case errors.Is(err, leads.ErrEmailTaken):
		respondJSON(w, http.StatusConflict, errorResponse{Error: "email already in use", Code: "EMAIL_TAKEN"})
	case errors.Is(err, leads.ErrDuplicateImage):
		respondJSON(w, http.StatusConflict, errorResponse{Error: "image already attached", Code: "DUPLICATE_IMAGE"})
	case errors.Is(err, leads.ErrConflict):
		respondJSON(w, http.StatusConflict, errorResponse{Error: "concurrent modification, retry the request", Code: "CONFLICT"})
	default:
		if capErr, ok := leads.IsCapacityError(err); ok {
			respondJSON(w, http.StatusConflict, errorResponse{
				Error: capErr.Error(),
				Code:  "IMAGE_LIMIT_REACHED",
				Details: map[string]int{
					"currentCount": capErr.Current,
					"maxImages":    capErr.Max,
				},
			})
			return
		}
		if leads.IsInvalidImage(err) {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "INVALID_IMAGE"})
			return
		}
		if leads.IsValidation(err) {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "VALIDATION_FAILED"})
			return
		}
		logger.Error("request failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	respondJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		badRequest(w, "invalid request body")
		return false
	}
	return true
}
