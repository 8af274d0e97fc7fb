package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// Errors reported by the hub and its connections.
var (
	ErrNoConnection   = errors.New("user has no open connection")
	ErrSlowConsumer   = errors.New("connection send buffer is full")
	ErrConnClosed     = errors.New("connection is closed")
	ErrHubClosed      = errors.New("hub is closed")
	ErrInvalidUserID  = errors.New("user id is required")
	ErrNilConnection  = errors.New("connection is required")
	ErrEmptyEventName = errors.New("event name is required")
)

// EventNotification is the event name used for notification pushes.
const EventNotification = "notification"

// Envelope is the wire format of every pushed message.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Connection is a single open channel to a client.
type Connection interface {
	// Send queues an encoded message without blocking. It returns
	// ErrSlowConsumer when the buffer is full and ErrConnClosed after Close.
	Send(msg []byte) error

	// Close terminates the connection. It is safe to call more than once.
	Close() error
}

// Hub is the process-wide registry of open connections.
type Hub struct {
	mu     sync.RWMutex
	conns  map[uuid.UUID]map[Connection]struct{}
	closed bool
	logger *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		conns:  make(map[uuid.UUID]map[Connection]struct{}),
		logger: logger.With("component", "realtime_hub"),
	}
}

// Join registers conn under userID. The returned leave function removes it
// again and is safe to call more than once.
func (h *Hub) Join(userID uuid.UUID, conn Connection) (func(), error) {
	if userID == uuid.Nil {
		return nil, ErrInvalidUserID
	}
	if conn == nil {
		return nil, ErrNilConnection
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	set, ok := h.conns[userID]
	if !ok {
		set = make(map[Connection]struct{})
		h.conns[userID] = set
	}
	set[conn] = struct{}{}
	count := len(set)
	h.mu.Unlock()

	h.logger.Debug("connection joined", "user_id", userID, "user_connections", count)

	var once sync.Once
	return func() {
		once.Do(func() { h.leave(userID, conn) })
	}, nil
}

func (h *Hub) leave(userID uuid.UUID, conn Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.conns[userID]
	if !ok {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(h.conns, userID)
	}
	h.logger.Debug("connection left", "user_id", userID, "user_connections", len(set))
}

// Connected reports whether userID has at least one open connection.
func (h *Hub) Connected(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID]) > 0
}

// Emit pushes event to every connection of userID. The message is dropped for
// connections whose buffer is full; their errors are returned together.
func (h *Hub) Emit(userID uuid.UUID, event string, payload interface{}) error {
	if event == "" {
		return ErrEmptyEventName
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", event, err)
	}
	msg, err := json.Marshal(Envelope{Event: event, Payload: raw})
	if err != nil {
		return fmt.Errorf("failed to encode %s envelope: %w", event, err)
	}

	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return ErrHubClosed
	}
	targets := make([]Connection, 0, len(h.conns[userID]))
	for conn := range h.conns[userID] {
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return ErrNoConnection
	}

	var result *multierror.Error
	for _, conn := range targets {
		if err := conn.Send(msg); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Close closes every registered connection and refuses further joins.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	conns := h.conns
	h.conns = make(map[uuid.UUID]map[Connection]struct{})
	h.mu.Unlock()

	var result *multierror.Error
	closed := 0
	for _, set := range conns {
		for conn := range set {
			if err := conn.Close(); err != nil {
				result = multierror.Append(result, err)
			}
			closed++
		}
	}

	h.logger.Info("hub closed", "connections_closed", closed)
	return result.ErrorOrNil()
}
