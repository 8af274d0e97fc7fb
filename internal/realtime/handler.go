package realtime

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// IdentityFunc returns the authenticated user of a request.
type IdentityFunc func(r *http.Request) (uuid.UUID, bool)

// Handler upgrades authenticated requests to WebSocket connections and joins
// them to the hub.
type Handler struct {
	hub      *Hub
	identity IdentityFunc
	upgrader websocket.Upgrader
	cfg      ClientConfig
	logger   *slog.Logger
}

// NewHandler creates the WebSocket endpoint. An empty allowedOrigins list
// accepts only same-origin requests; "*" accepts any origin.
func NewHandler(
	hub *Hub,
	identity IdentityFunc,
	cfg ClientConfig,
	allowedOrigins []string,
	logger *slog.Logger,
) *Handler {
	h := &Handler{
		hub:      hub,
		identity: identity,
		cfg:      cfg.withDefaults(),
		logger:   logger.With("component", "realtime_handler"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger.Debug("websocket upgrade failed", "error", err, "user_id", userID)
		return
	}

	client := NewClient(ws, h.cfg, h.logger.With("user_id", userID))
	leave, err := h.hub.Join(userID, client)
	if err != nil {
		h.logger.Warn("failed to join connection", "error", err, "user_id", userID)
		_ = client.Close()
		return
	}
	defer leave()

	h.logger.Info("websocket connected", "user_id", userID)
	client.Run()
	h.logger.Info("websocket disconnected", "user_id", userID)
}
