package model

import (
	"errors"
	"fmt"
)

// ModelError reports malformed planning input. It is fatal: a model that fails
// validation is never handed to the constraint builder.
type ModelError struct {
	// Field locates the offending input, e.g. "workers[3].availability.Mon"
	Field string

	// Reason describes what is wrong with it
	Reason string
}

func (e *ModelError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("model error: %s", e.Reason)
	}
	return fmt.Sprintf("model error: %s: %s", e.Field, e.Reason)
}

// newModelError builds a ModelError with a formatted reason
func newModelError(field, format string, args ...any) *ModelError {
	return &ModelError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsModelError reports whether err is, or wraps, a ModelError
func IsModelError(err error) bool {
	var me *ModelError
	return errors.As(err, &me)
}
