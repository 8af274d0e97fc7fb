package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/access"
	"github.com/phrazzld/teamtask-api/internal/api/shared"
	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/phrazzld/teamtask-api/internal/platform/logger"
	"github.com/phrazzld/teamtask-api/internal/service/auth"
)

// UnauthenticatedMessage is the only body a failed authentication produces,
// whatever the cause.
const UnauthenticatedMessage = "Invalid or expired token"

// TokenQueryParam is read by AuthenticateWebSocket when no header is sent.
const TokenQueryParam = "token"

// AuthMiddleware provides JWT authentication for routes.
type AuthMiddleware struct {
	jwtService auth.JWTService
	logger     *slog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(jwtService auth.JWTService, log *slog.Logger) *AuthMiddleware {
	if log == nil {
		log = slog.Default()
	}
	return &AuthMiddleware{
		jwtService: jwtService,
		logger:     log.With(slog.String("component", "auth_middleware")),
	}
}

// Authenticate validates the bearer token from the Authorization header and
// adds the caller's access.Actor to the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return m.authenticate(next, false)
}

// AuthenticateWebSocket is Authenticate that also accepts the token as a
// query parameter, since browsers cannot set headers on a WebSocket
// handshake.
func (m *AuthMiddleware) AuthenticateWebSocket(next http.Handler) http.Handler {
	return m.authenticate(next, true)
}

func (m *AuthMiddleware) authenticate(next http.Handler, allowQuery bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContextOrDefault(r.Context(), m.logger)

		token, err := bearerToken(r, allowQuery)
		if err != nil {
			m.reject(w, r, err)
			return
		}

		claims, err := m.jwtService.ValidateToken(r.Context(), token)
		if err != nil {
			m.reject(w, r, err)
			return
		}

		actor := access.Actor{ID: claims.UserID, Role: claims.Role}
		if actor.ID == uuid.Nil || !actor.Role.IsValid() {
			m.reject(w, r, auth.ErrInvalidToken)
			return
		}

		ctx := shared.WithActor(r.Context(), actor)
		ctx = logger.WithLogger(ctx, log.With(
			slog.String("actor_id", actor.ID.String()),
			slog.String("actor_role", string(actor.Role))))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, cause error) {
	if !errors.Is(cause, auth.ErrInvalidToken) &&
		!errors.Is(cause, auth.ErrExpiredToken) &&
		!errors.Is(cause, auth.ErrTokenNotYetValid) &&
		!errors.Is(cause, auth.ErrMissingToken) {
		// Unknown validator failures still look like a bad token to the client.
		logger.FromContextOrDefault(r.Context(), m.logger).
			Warn("unexpected token validation failure", "error", cause)
	}
	shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, UnauthenticatedMessage,
		errors.Join(domain.ErrUnauthenticated, cause))
}

// bearerToken extracts the credential from "Authorization: Bearer <token>",
// falling back to the token query parameter when allowQuery is set.
func bearerToken(r *http.Request, allowQuery bool) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if allowQuery {
			if token := r.URL.Query().Get(TokenQueryParam); token != "" {
				return token, nil
			}
		}
		return "", auth.ErrMissingToken
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", auth.ErrInvalidToken
	}
	return strings.TrimSpace(token), nil
}

// GetActor extracts the authenticated actor from the request context.
func GetActor(r *http.Request) (access.Actor, bool) {
	return shared.ActorFromContext(r.Context())
}

// GetUserID extracts the authenticated user ID from the request context.
// It satisfies realtime.IdentityFunc.
func GetUserID(r *http.Request) (uuid.UUID, bool) {
	actor, ok := GetActor(r)
	return actor.ID, ok
}
