// Package apperrors defines the error values shared between the matching
// core, the storage layer and the HTTP surface.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrAccessDenied       = errors.New("access denied")
	ErrDuplicateMatch     = errors.New("match already exists for client and ground")
	ErrMatchNotFound      = errors.New("match not found")
	ErrSessionNotFound    = errors.New("review session not found")
	ErrCandidateNotFound  = errors.New("candidate not found in review session")
	ErrSessionRequired    = errors.New("staged generation requires a review session")
	ErrSessionClosed      = errors.New("review session already submitted")
	ErrInvalidPersistence = errors.New("invalid persistence mode")
)

// ValidationError reports malformed input for a single field.
type ValidationError struct {
	Field  string `json:"field"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func NewValidationError(field, value, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err wraps one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMatchNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrCandidateNotFound)
}
