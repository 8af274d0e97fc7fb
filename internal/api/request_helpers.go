package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/access"
	"github.com/phrazzld/teamtask-api/internal/api/shared"
	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/phrazzld/teamtask-api/internal/platform/logger"
)

// getPathUUID extracts a UUID from the URL path parameters.
//
// Returns:
//   - (uuid.UUID, nil): The parsed UUID if valid
//   - (uuid.Nil, error): A ValidationError if the parameter is missing or malformed
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, domain.NewValidationError(paramName, "is required", domain.ErrValidation)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(paramName, "has invalid format", domain.ErrInvalidID)
	}

	return id, nil
}

// handleActorFromContext returns the authenticated actor placed in the
// context by the auth middleware. It writes a 401 and returns false when
// there is none.
func handleActorFromContext(w http.ResponseWriter, r *http.Request, log *slog.Logger) (access.Actor, bool) {
	log = logger.FromContextOrDefault(r.Context(), log)

	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		log.Warn("actor not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthenticated, "")
		return access.Actor{}, false
	}
	return actor, true
}

// handleActorAndPathUUID is a composite helper that extracts both the actor
// from context and a UUID from the path parameters. It writes an error
// response if either extraction fails.
func handleActorAndPathUUID(
	w http.ResponseWriter,
	r *http.Request,
	paramName string,
	log *slog.Logger,
) (access.Actor, uuid.UUID, bool) {
	log = logger.FromContextOrDefault(r.Context(), log)

	actor, ok := handleActorFromContext(w, r, log)
	if !ok {
		return access.Actor{}, uuid.Nil, false
	}

	pathID, err := getPathUUID(r, paramName)
	if err != nil {
		log.Debug("invalid path parameter",
			slog.String("param_name", paramName),
			slog.String("value", chi.URLParam(r, paramName)))
		HandleAPIError(w, r, err, "")
		return access.Actor{}, uuid.Nil, false
	}

	return actor, pathID, true
}

// parseAndValidateRequest decodes the JSON body into req and runs the struct
// validator over it. It writes a 400 and returns false on either failure.
func parseAndValidateRequest(w http.ResponseWriter, r *http.Request, req interface{}, log *slog.Logger) bool {
	log = logger.FromContextOrDefault(r.Context(), log)

	if err := shared.DecodeJSON(r, req); err != nil {
		log.Debug("failed to decode request body", "error", err)
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, msgInvalidBody, err)
		return false
	}

	if err := shared.ValidateRequest(req); err != nil {
		log.Debug("request validation failed", "error", err)
		HandleAPIError(w, r, err, "")
		return false
	}
	return true
}
