package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned when request input is missing or malformed.
	ErrValidation = errors.New("validation error")
	// ErrInvalidID is returned when an identifier cannot be used by the store.
	ErrInvalidID = errors.New("invalid id")
	// ErrStoreUnavailable is returned when the document store cannot be reached.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError describes rejected input in words a client can act on.
// It matches ErrValidation.
type ValidationError struct {
	Message string
}

// Invalidf creates a ValidationError.
func Invalidf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + e.Message
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation //nolint:errorlint
}
