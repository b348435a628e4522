package leads

import (
	"errors"
	"fmt"
)

var (
	// ErrLeadNotFound is returned when a lead does not exist.
	ErrLeadNotFound = errors.New("leads: lead not found")

	// ErrImageNotFound is returned when an image does not exist or does not
	// belong to the lead being operated on. Cross-lead lookups deliberately
	// collapse into this error so existence is never leaked across leads.
	ErrImageNotFound = errors.New("leads: image not found")

	// ErrDuplicateImage is returned when an image with the same id is already
	// attached to the lead. Identity generation makes this unreachable in
	// practice; the check is defensive.
	ErrDuplicateImage = errors.New("leads: image already attached to lead")

	// ErrEmailTaken is returned when creating or updating a lead with an
	// email address already registered to another lead.
	ErrEmailTaken = errors.New("leads: email address already registered")

	// ErrConflict is returned when a conditional write loses an optimistic
	// concurrency race and the caller should re-read before retrying.
	ErrConflict = errors.New("leads: concurrent modification detected")
)

// CapacityError reports a rejected mutation that would push a lead past its
// image limit. Current and Max feed the corrective message shown to callers.
type CapacityError struct {
	Current int
	Max     int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("leads: image limit reached (%d/%d); delete or replace an existing image to add more", e.Current, e.Max)
}

// IsCapacityError reports whether err is a capacity rejection, returning the
// typed error when it is.
func IsCapacityError(err error) (*CapacityError, bool) {
	var ce *CapacityError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// InvalidImageError reports a payload that failed decode or domain
// validation. It is a caller input error, not a system fault.
type InvalidImageError struct {
	Reason string
	err    error
}

func (e *InvalidImageError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("leads: invalid image: %s: %v", e.Reason, e.err)
	}
	return fmt.Sprintf("leads: invalid image: %s", e.Reason)
}

func (e *InvalidImageError) Unwrap() error { return e.err }

func invalidImage(reason string) error {
	return &InvalidImageError{Reason: reason}
}

func invalidImagef(reason string, err error) error {
	return &InvalidImageError{Reason: reason, err: err}
}

// IsInvalidImage reports whether err is an image validation failure.
func IsInvalidImage(err error) bool {
	var ie *InvalidImageError
	return errors.As(err, &ie)
}

// ValidationError reports invalid lead contact fields.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("leads: invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a lead field validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
