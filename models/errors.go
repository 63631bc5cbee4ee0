package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the store, the services and the transports.
// Transports map these with errors.Is; nothing below them renders messages.
var (
	ErrNotFound   = errors.New("record not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
	ErrTransient  = errors.New("backend temporarily unavailable")
	ErrUnlinked   = errors.New("chat identity is not linked")

	// ErrUnsupported is returned when a schema lacks an optional capability
	// such as the metadata column.
	ErrUnsupported = errors.New("operation not supported by schema")

	ErrDuplicateKey  = fmt.Errorf("%w: natural key already exists", ErrConflict)
	ErrIdentityTaken = fmt.Errorf("%w: chat identity already linked to a different record", ErrConflict)
)

// Invalid builds a validation error that still matches ErrValidation.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
