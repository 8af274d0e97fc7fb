package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/phrazzld/teamtask-api/internal/store"
)

// Sentinel errors specific to the service layer.
var (
	// ErrEmptyPatch is returned when a partial update carries no fields.
	// API layer should map this to HTTP 400 Bad Request.
	ErrEmptyPatch = errors.New("at least one field must be provided")

	// ErrUnknownUser is returned when a referenced user does not exist.
	ErrUnknownUser = errors.New("referenced user does not exist")

	// ErrNotAManager is returned when a team manager reference points at a
	// user without the manager role.
	ErrNotAManager = errors.New("user does not have the manager role")
)

// ServiceError records which operation failed. It wraps the categorized
// cause so errors.Is keeps working through it.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// translateStoreError maps store sentinels onto the domain taxonomy. Errors
// without a store category are returned unchanged and surface as internal.
func translateStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrConflict):
		return err
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	case errors.Is(err, store.ErrEmailExists):
		return domain.NewConflictError("email", err)
	case errors.Is(err, store.ErrTeamNameExists):
		return domain.NewConflictError("name", err)
	case errors.Is(err, store.ErrDuplicate):
		return domain.NewConflictError("record", err)
	case errors.Is(err, store.ErrInvalidEntity):
		return domain.NewValidationError("", "references an unknown record", err)
	default:
		return err
	}
}

// validationFrom wraps a plain domain validation error into a
// ValidationError for field.
func validationFrom(field string, err error) error {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return err
	}
	return domain.NewValidationError(field, err.Error(), err)
}

// forbidden builds the error returned when access control denies an action.
func forbidden(operation string) error {
	return NewServiceError(operation, "access denied", domain.ErrForbidden)
}
