package leads

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// LeadID identifies a lead. The zero value is invalid.
type LeadID uuid.UUID

// ImageID identifies an image owned by a lead. The zero value is invalid.
type ImageID uuid.UUID

// NewLeadID returns a freshly generated lead identifier.
func NewLeadID() LeadID {
	return LeadID(uuid.New())
}

// ParseLeadID parses a lead identifier from its string form.
func ParseLeadID(s string) (LeadID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return LeadID{}, fmt.Errorf("leads: parse lead id: %w", err)
	}
	if id == uuid.Nil {
		return LeadID{}, errors.New("leads: lead id cannot be nil")
	}
	return LeadID(id), nil
}

func (id LeadID) String() string { return uuid.UUID(id).String() }

func (id LeadID) UUID() uuid.UUID { return uuid.UUID(id) }

func (id LeadID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// NewImageID returns a freshly generated image identifier.
func NewImageID() ImageID {
	return ImageID(uuid.New())
}

// ParseImageID parses an image identifier from its string form.
func ParseImageID(s string) (ImageID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ImageID{}, fmt.Errorf("leads: parse image id: %w", err)
	}
	if id == uuid.Nil {
		return ImageID{}, errors.New("leads: image id cannot be nil")
	}
	return ImageID(id), nil
}

func (id ImageID) String() string { return uuid.UUID(id).String() }

func (id ImageID) UUID() uuid.UUID { return uuid.UUID(id) }

func (id ImageID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
