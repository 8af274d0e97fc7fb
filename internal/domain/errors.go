package domain

import (
	"errors"
	"fmt"
)

// Error categories shared across the application. Every error returned by a
// service wraps exactly one of these so the API layer can map it to a status.
var (
	// ErrValidation is returned when input is missing or malformed.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a requested resource does not exist, or when
	// its existence must not be revealed to the caller.
	ErrNotFound = errors.New("resource not found")

	// ErrForbidden is returned when a role or ownership check fails.
	ErrForbidden = errors.New("operation not permitted")

	// ErrUnauthenticated is returned when a credential is missing or invalid.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrConflict is returned when a unique constraint would be violated.
	ErrConflict = errors.New("resource already exists")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError creates a ValidationError for the given field.
// If err is nil, ErrValidation is used as the cause.
func NewValidationError(field, message string, err error) *ValidationError {
	if err == nil {
		err = ErrValidation
	}
	return &ValidationError{Field: field, Message: message, Err: err}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is reports every ValidationError as an ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ConflictError names the field whose uniqueness would be violated.
type ConflictError struct {
	Field string
	Err   error
}

// NewConflictError creates a ConflictError for the given field.
func NewConflictError(field string, err error) *ConflictError {
	return &ConflictError{Field: field, Err: err}
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s already exists: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s already exists", e.Field)
}

// Unwrap returns the wrapped cause.
func (e *ConflictError) Unwrap() error {
	return e.Err
}

// Is reports every ConflictError as an ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
