package gallery

import (
	"fmt"
	"time"
)

// UploadResponse reports a successful single upload together with the
// recomputed authoritative counts.
type UploadResponse struct {
	ImageID           string    `json:"imageId"`
	LeadID            string    `json:"leadId"`
	FileName          string    `json:"fileName"`
	ContentType       string    `json:"contentType"`
	Size              string    `json:"size"`
	CurrentImageCount int       `json:"currentImageCount"`
	RemainingSlots    int       `json:"remainingSlots"`
	IsAtLimit         bool      `json:"isAtLimit"`
	UploadedAt        time.Time `json:"uploadedAt"`
	SuggestionMessage string    `json:"suggestionMessage"`
}

// BatchItemResult is the per-item outcome of a batch upload.
type BatchItemResult struct {
	ImageID      string `json:"imageId,omitempty"`
	FileName     string `json:"fileName"`
	Success      bool   `json:"success"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// Per-item batch error codes.
const (
	batchErrInvalidImage     = "INVALID_IMAGE"
	batchErrDomainValidation = "DOMAIN_VALIDATION_FAILED"
)

// BatchUploadResponse reports a batch outcome. Items beyond the available
// slots are clipped silently and appear in no result entry.
type BatchUploadResponse struct {
	LeadID            string            `json:"leadId"`
	UploadedCount     int               `json:"uploadedCount"`
	FailedCount       int               `json:"failedCount"`
	CurrentImageCount int               `json:"currentImageCount"`
	RemainingSlots    int               `json:"remainingSlots"`
	Results           []BatchItemResult `json:"results"`
}

// ReplaceResponse reports a completed replace; the count is unchanged.
type ReplaceResponse struct {
	OldImageID string `json:"oldImageId"`
	NewImageID string `json:"newImageId"`
	LeadID     string `json:"leadId"`
	FileName   string `json:"fileName"`
	Size       string `json:"size"`
	Message    string `json:"message"`
}

// DeleteImageResponse reports the counts after a single-image delete.
type DeleteImageResponse struct {
	Success             bool   `json:"success"`
	RemainingImageCount int    `json:"remainingImageCount"`
	AvailableSlots      int    `json:"availableSlots"`
	Message             string `json:"message"`
}

// DeleteLeadResponse reports a completed cascade delete.
type DeleteLeadResponse struct {
	LeadID        string `json:"leadId"`
	ImagesDeleted int64  `json:"imagesDeleted"`
}

// ImageSummary is one image in a listing.
type ImageSummary struct {
	ImageID     string     `json:"imageId"`
	FileName    string     `json:"fileName"`
	ContentType string     `json:"contentType"`
	SizeBytes   int        `json:"sizeBytes"`
	Size        string     `json:"size"`
	Description string     `json:"description,omitempty"`
	Data        string     `json:"data,omitempty"`
	UploadedAt  time.Time  `json:"uploadedAt"`
	ModifiedAt  *time.Time `json:"modifiedAt,omitempty"`
}

// ImagesResponse lists a lead's images in upload order.
type ImagesResponse struct {
	LeadID         string         `json:"leadId"`
	Count          int            `json:"count"`
	RemainingSlots int            `json:"remainingSlots"`
	Images         []ImageSummary `json:"images"`
}

// CountResponse reports the authoritative count for a lead.
type CountResponse struct {
	LeadID         string `json:"leadId"`
	Count          int    `json:"count"`
	RemainingSlots int    `json:"remainingSlots"`
	IsAtLimit      bool   `json:"isAtLimit"`
}

// ValidateResponse is the outcome of a dry-run payload validation.
type ValidateResponse struct {
	Valid               bool   `json:"valid"`
	SizeBytes           int    `json:"sizeBytes"`
	Size                string `json:"size,omitempty"`
	DetectedContentType string `json:"detectedContentType,omitempty"`
	Reason              string `json:"reason,omitempty"`
}

func suggestionMessage(slots int) string {
	switch slots {
	case 0:
		return "You've reached the maximum of 10 images. To add more, you'll need to delete or replace existing images."
	case 1:
		return "You can add 1 more image before reaching the limit."
	case 2:
		return "You have room for 2 more images."
	default:
		return fmt.Sprintf("You can add %d more images.", slots)
	}
}

func formatSize(sizeBytes int) string {
	switch {
	case sizeBytes < 1024:
		return fmt.Sprintf("%d bytes", sizeBytes)
	case sizeBytes < 1048576:
		return fmt.Sprintf("%.2f KB", float64(sizeBytes)/1024)
	default:
		return fmt.Sprintf("%.2f MB", float64(sizeBytes)/1048576)
	}
}
