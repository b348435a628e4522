// Package imaging implements the payload codec: base64 transport encoding,
// decoding with data URI handling, byte measurement, and content-type
// sniffing from magic numbers.
package imaging

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFormat is returned when a payload is not valid base64.
var ErrInvalidFormat = errors.New("imaging: invalid base64 format")

// Base64Codec converts image payloads between their transport string form
// and raw bytes. Stateless and safe for concurrent use.
type Base64Codec struct{}

// NewBase64Codec returns the standard codec.
func NewBase64Codec() *Base64Codec {
	return &Base64Codec{}
}

// Decode strips an optional data URI prefix and decodes the base64 payload.
func (c *Base64Codec) Decode(payload string) ([]byte, error) {
	cleaned := stripDataURI(strings.TrimSpace(payload))
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidFormat)
	}
	data, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return data, nil
}

// Encode renders raw bytes in canonical base64 transport form.
func (c *Base64Codec) Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Measure reports the decoded byte size of a base64 payload without
// decoding it.
func (c *Base64Codec) Measure(payload string) int {
	cleaned := stripDataURI(strings.TrimSpace(payload))
	if cleaned == "" {
		return 0
	}
	padding := 0
	if strings.HasSuffix(cleaned, "==") {
		padding = 2
	} else if strings.HasSuffix(cleaned, "=") {
		padding = 1
	}
	return len(cleaned)*3/4 - padding
}

// SniffContentType detects a MIME type from magic numbers. Returns "" when
// the signature is not a recognized image format.
func (c *Base64Codec) SniffContentType(data []byte) string {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "image/jpeg"
	case len(data) >= 8 && string(data[:8]) == "\x89PNG\r\n\x1a\n":
		return "image/png"
	case len(data) >= 6 && (string(data[:6]) == "GIF87a" || string(data[:6]) == "GIF89a"):
		return "image/gif"
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "image/webp"
	default:
		return ""
	}
}

// stripDataURI removes a "data:image/...;base64," prefix when present.
func stripDataURI(payload string) string {
	if !strings.HasPrefix(payload, "data:") {
		return payload
	}
	comma := strings.Index(payload, ",")
	if comma < 0 || comma == len(payload)-1 {
		return ""
	}
	meta := payload[:comma]
	if !strings.Contains(meta, ";base64") {
		return payload
	}
	return payload[comma+1:]
}
