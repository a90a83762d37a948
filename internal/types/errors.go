package types

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by repositories when a record does not exist or
// belongs to another owner.
var ErrNotFound = errors.New("record not found")

// ValidationError reports missing or out-of-range input. It is returned
// before any external provider is called.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Invalid builds a ValidationError.
func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
