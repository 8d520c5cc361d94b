package board

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden indicates the actor failed a permission check. The
	// mutation is not applied and no notification is generated.
	ErrForbidden = errors.New("board: forbidden")
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("board: not found")
)

// ValidationError carries a field-level reason for rejecting an input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("board: invalid %s: %s", e.Field, e.Reason)
}

func newValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
