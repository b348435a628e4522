package leads

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const (
	// MaxImageSizeBytes is the largest decoded payload accepted for a single
	// image (5 MiB).
	MaxImageSizeBytes = 5242880

	// MaxFileNameLength bounds the stored file name.
	MaxFileNameLength = 255

	defaultContentType = "image/jpeg"
)

var allowedContentTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

var extensionContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Codec decodes and encodes image payloads between their transport string
// form and raw bytes. Implemented by internal/imaging.
type Codec interface {
	Decode(payload string) ([]byte, error)
	Encode(data []byte) string
	SniffContentType(data []byte) string
}

// Image is an uploaded picture owned by exactly one lead. Immutable after
// construction except for its description.
type Image struct {
	id          ImageID
	leadID      LeadID
	data        string // canonical base64, no data URI prefix
	fileName    string
	contentType string
	sizeBytes   int
	description string
	uploadedAt  time.Time
	createdAt   time.Time
	modifiedAt  *time.Time
}

// NewImage decodes and validates a transport payload and builds the image.
// Decode-and-measure happens here, at construction, so an Image can never
// hold an unvalidated payload.
func NewImage(codec Codec, leadID LeadID, payload, fileName, contentType, description string) (*Image, error) {
	if codec == nil {
		return nil, invalidImage("codec is required")
	}
	if leadID.IsZero() {
		return nil, invalidImage("owning lead id is required")
	}

	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return nil, invalidImage("file name is required")
	}
	if len(fileName) > MaxFileNameLength {
		return nil, invalidImage(fmt.Sprintf("file name exceeds %d characters", MaxFileNameLength))
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if ext != "" {
		if _, ok := extensionContentTypes[ext]; !ok {
			return nil, invalidImage(fmt.Sprintf("file extension %q is not allowed", ext))
		}
	}

	data, err := codec.Decode(payload)
	if err != nil {
		return nil, invalidImagef("payload is not valid base64", err)
	}
	if len(data) == 0 {
		return nil, invalidImage("decoded payload is empty")
	}
	if len(data) > MaxImageSizeBytes {
		return nil, invalidImage(fmt.Sprintf("decoded size %d exceeds limit of %d bytes", len(data), MaxImageSizeBytes))
	}

	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType == "" {
		if ct, ok := extensionContentTypes[ext]; ok {
			contentType = ct
		} else if sniffed := codec.SniffContentType(data); sniffed != "" {
			contentType = sniffed
		} else {
			contentType = defaultContentType
		}
	}
	if _, ok := allowedContentTypes[contentType]; !ok {
		return nil, invalidImage(fmt.Sprintf("content type %q is not allowed", contentType))
	}

	now := time.Now().UTC()
	return &Image{
		id:          NewImageID(),
		leadID:      leadID,
		data:        codec.Encode(data),
		fileName:    fileName,
		contentType: contentType,
		sizeBytes:   len(data),
		description: strings.TrimSpace(description),
		uploadedAt:  now,
		createdAt:   now,
	}, nil
}

func (img *Image) ID() ImageID          { return img.id }
func (img *Image) LeadID() LeadID       { return img.leadID }
func (img *Image) Data() string         { return img.data }
func (img *Image) FileName() string     { return img.fileName }
func (img *Image) ContentType() string  { return img.contentType }
func (img *Image) SizeBytes() int       { return img.sizeBytes }
func (img *Image) Description() string  { return img.description }
func (img *Image) UploadedAt() time.Time { return img.uploadedAt }
func (img *Image) CreatedAt() time.Time { return img.createdAt }

// ModifiedAt returns the last description change time, if any.
func (img *Image) ModifiedAt() (time.Time, bool) {
	if img.modifiedAt == nil {
		return time.Time{}, false
	}
	return *img.modifiedAt, true
}

// UpdateDescription replaces the free-text description and records the change
// time. The payload itself stays immutable.
func (img *Image) UpdateDescription(description string) {
	img.description = strings.TrimSpace(description)
	now := time.Now().UTC()
	img.modifiedAt = &now
}

// DataURI renders the payload as an inline data URI.
func (img *Image) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", img.contentType, img.data)
}

// FormattedSize renders the decoded size for human-facing responses.
func (img *Image) FormattedSize() string {
	switch {
	case img.sizeBytes < 1024:
		return fmt.Sprintf("%d bytes", img.sizeBytes)
	case img.sizeBytes < 1048576:
		return fmt.Sprintf("%.2f KB", float64(img.sizeBytes)/1024)
	default:
		return fmt.Sprintf("%.2f MB", float64(img.sizeBytes)/1048576)
	}
}

// ImageRecord is the persistence shape of an Image. Stores map through it so
// the entity's fields stay private to this package.
type ImageRecord struct {
	ID          ImageID
	LeadID      LeadID
	Data        string
	FileName    string
	ContentType string
	SizeBytes   int
	Description string
	UploadedAt  time.Time
	CreatedAt   time.Time
	ModifiedAt  *time.Time
}

// Record snapshots the image for persistence.
func (img *Image) Record() ImageRecord {
	var modified *time.Time
	if img.modifiedAt != nil {
		m := *img.modifiedAt
		modified = &m
	}
	return ImageRecord{
		ID:          img.id,
		LeadID:      img.leadID,
		Data:        img.data,
		FileName:    img.fileName,
		ContentType: img.contentType,
		SizeBytes:   img.sizeBytes,
		Description: img.description,
		UploadedAt:  img.uploadedAt,
		CreatedAt:   img.createdAt,
		ModifiedAt:  modified,
	}
}

// ImageFromRecord rebuilds an image from its persisted form.
func ImageFromRecord(rec ImageRecord) (*Image, error) {
	if rec.ID.IsZero() {
		return nil, invalidImage("persisted image id is missing")
	}
	if rec.LeadID.IsZero() {
		return nil, invalidImage("persisted image has no owning lead")
	}
	var modified *time.Time
	if rec.ModifiedAt != nil {
		m := *rec.ModifiedAt
		modified = &m
	}
	return &Image{
		id:          rec.ID,
		leadID:      rec.LeadID,
		data:        rec.Data,
		fileName:    rec.FileName,
		contentType: rec.ContentType,
		sizeBytes:   rec.SizeBytes,
		description: rec.Description,
		uploadedAt:  rec.UploadedAt,
		createdAt:   rec.CreatedAt,
		modifiedAt:  modified,
	}, nil
}
