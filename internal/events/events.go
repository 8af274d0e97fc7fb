package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types published by the task service.
const (
	TypeTaskAssigned  = "task.assigned"
	TypeTaskCompleted = "task.completed"
	TypeTaskUpdated   = "task.updated"
	TypeTaskDeleted   = "task.deleted"
)

// Event is a single domain event. The payload is kept as raw JSON so the
// events package has no dependency on the types of its producers.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type identifies what happened
	Type string `json:"type"`

	// Payload contains the event-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// TaskChange is the payload of every task.* event.
type TaskChange struct {
	TaskID    uuid.UUID `json:"task_id"`
	TaskTitle string    `json:"task_title"`
	ActorID   uuid.UUID `json:"actor_id"`
	// Recipients lists the users that should hear about the change. The
	// handler drops the actor and duplicates.
	Recipients []uuid.UUID `json:"recipients"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates a new Event with the specified type and payload.
func NewEvent(eventType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// NewTaskChangeEvent is a convenience wrapper for task.* events.
func NewTaskChangeEvent(eventType string, change TaskChange) (*Event, error) {
	return NewEvent(eventType, change)
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *Event) error
}

// NopEmitter discards every event.
type NopEmitter struct{}

// EmitEvent implements EventEmitter.
func (NopEmitter) EmitEvent(context.Context, *Event) error { return nil }
