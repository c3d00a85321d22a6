package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the addressed file does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrForbidden is returned when the caller may not perform the operation.
	ErrForbidden = errors.New("operation not permitted")

	// ErrStorageUnavailable wraps blob or metadata store failures that
	// survived the retry budget. Callers should treat it as transient.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrFileTooLarge marks the validation failure for oversized content.
	ErrFileTooLarge = errors.New("file too large")
)

// ValidationError reports bad upload input. Field names the offending input.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func newValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
