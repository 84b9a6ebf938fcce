package apperrors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("budget", "abc", "not a number")
	assert.Equal(t, `invalid budget "abc": not a number`, err.Error())

	wrapped := fmt.Errorf("parse plot: %w", err)
	assert.True(t, IsValidation(wrapped))
	assert.False(t, IsValidation(ErrAccessDenied))

	noValue := NewValidationError("m2", "", "must be positive")
	assert.Equal(t, "invalid m2: must be positive", noValue.Error())
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrMatchNotFound, true},
		{fmt.Errorf("load: %w", ErrSessionNotFound), true},
		{ErrCandidateNotFound, true},
		{ErrAccessDenied, false},
		{ErrDuplicateMatch, false},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, IsNotFound(tt.err))
		})
	}
}
