package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/teamtask-api/internal/api/middleware"
	"github.com/phrazzld/teamtask-api/internal/api/shared"
	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/phrazzld/teamtask-api/internal/service/auth"
	"github.com/phrazzld/teamtask-api/internal/store"
)

// Messages shared by several handlers.
const (
	msgInternal      = "An unexpected error occurred"
	msgForbidden     = "You do not have permission to perform this action"
	msgInvalidBody   = "Invalid request format"
	msgInvalidID     = "Invalid ID format"
	msgNotFound      = "Resource not found"
	msgValidation    = "Validation error"
	msgAlreadyExists = "Resource already exists"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error category. Anything uncategorized is a 500.
func MapErrorToStatusCode(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case err == nil:
		return http.StatusInternalServerError

	case errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized

	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity),
		errors.As(err, &verrs):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. Raw error text never reaches the client; only
// messages authored in this codebase do.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return msgInternal
	}

	var (
		verr     *domain.ValidationError
		conflict *domain.ConflictError
		verrs    validator.ValidationErrors
	)

	switch {
	case MapErrorToStatusCode(err) == http.StatusUnauthorized:
		return middleware.UnauthenticatedMessage

	case errors.Is(err, domain.ErrForbidden):
		return msgForbidden

	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, store.ErrTeamNotFound):
		return "Team not found"
	case errors.Is(err, store.ErrNotificationNotFound):
		return "Notification not found"
	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return msgNotFound

	case errors.As(err, &conflict):
		return conflictMessage(conflict.Field)
	case errors.Is(err, store.ErrEmailExists):
		return conflictMessage("email")
	case errors.Is(err, store.ErrTeamNameExists):
		return conflictMessage("name")
	case errors.Is(err, domain.ErrConflict), errors.Is(err, store.ErrDuplicate):
		return msgAlreadyExists

	case errors.As(err, &verrs):
		return SanitizeValidationError(err)
	case errors.As(err, &verr):
		return validationMessage(verr)
	case errors.Is(err, domain.ErrInvalidID):
		return msgInvalidID
	case errors.Is(err, domain.ErrValidation), errors.Is(err, store.ErrInvalidEntity):
		return msgValidation

	default:
		return msgInternal
	}
}

func conflictMessage(field string) string {
	switch field {
	case "email":
		return "Email already exists"
	case "name":
		return "Team name already exists"
	default:
		return msgAlreadyExists
	}
}

// validationMessage renders a domain ValidationError. Its field and message
// are authored by the service layer and safe to show.
func validationMessage(verr *domain.ValidationError) string {
	msg := strings.TrimSpace(verr.Message)
	if msg == "" {
		return msgValidation
	}
	if verr.Field == "" {
		return strings.ToUpper(msg[:1]) + msg[1:]
	}
	return fmt.Sprintf("Invalid %s: %s", verr.Field, msg)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message naming the first rejected field.
func SanitizeValidationError(err error) string {
	details := validationDetails(err)
	if len(details) == 0 {
		return msgValidation
	}
	return fmt.Sprintf("Invalid %s: %s", details[0].Field, details[0].Message)
}

// validationDetails lists every field rejected by the struct validator.
func validationDetails(err error) []shared.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make([]shared.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, shared.FieldError{
			Field:   fe.Field(),
			Message: getValidationTagMessage(fe.Tag()),
		})
	}
	return details
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required", "required_without", "required_with":
		return "required field"
	case "email":
		return "invalid email format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "uuid", "uuid4":
		return "must be a valid ID"
	case "datetime":
		return "must be an RFC 3339 timestamp"
	case "dive", "unique":
		return "contains invalid entries"
	default:
		return "validation failed"
	}
}

// HandleAPIError maps err to a status and safe message and writes the
// response. fallbackMsg replaces the generic message of a 500.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallbackMsg string) {
	status := MapErrorToStatusCode(err)
	msg := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallbackMsg != "" {
		msg = fallbackMsg
	}

	var opts []shared.ResponseOption
	if details := validationDetails(err); len(details) > 0 {
		opts = append(opts, shared.WithDetails(details...))
	}
	if status == http.StatusForbidden {
		opts = append(opts, shared.WithElevatedLogLevel())
	}

	shared.RespondWithErrorAndLog(w, r, status, msg, err, opts...)
}
