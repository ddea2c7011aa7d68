package model

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed geometry, invalid clustering parameters
// or unknown configuration. It is fatal to a run and is returned unwrapped.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("validation: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field string, value any, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// IsValidation returns true if err (or any error in its chain) is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
