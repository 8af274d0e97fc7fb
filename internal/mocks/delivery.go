package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/platform/mailer"
)

// MockSender implements mailer.Sender and records every message.
type MockSender struct {
	// SendFn overrides the default behavior when set.
	SendFn func(ctx context.Context, msg mailer.Message) error

	// Err is returned when SendFn is nil.
	Err error

	mu   sync.Mutex
	sent []mailer.Message
}

var _ mailer.Sender = (*MockSender)(nil)

// Send implements mailer.Sender. The message is recorded even when an error
// is returned.
func (m *MockSender) Send(ctx context.Context, msg mailer.Message) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()

	if m.SendFn != nil {
		return m.SendFn(ctx, msg)
	}
	return m.Err
}

// Sent returns a copy of the recorded messages.
func (m *MockSender) Sent() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Message(nil), m.sent...)
}

// PublishedEvent is one recorded Emit call.
type PublishedEvent struct {
	UserID  uuid.UUID
	Event   string
	Payload interface{}
}

// MockPublisher records real-time pushes.
type MockPublisher struct {
	// EmitFn overrides the default behavior when set.
	EmitFn func(userID uuid.UUID, event string, payload interface{}) error

	// Err is returned when EmitFn is nil.
	Err error

	mu     sync.Mutex
	events []PublishedEvent
}

// Emit records the call and returns Err or the result of EmitFn.
func (m *MockPublisher) Emit(userID uuid.UUID, event string, payload interface{}) error {
	m.mu.Lock()
	m.events = append(m.events, PublishedEvent{UserID: userID, Event: event, Payload: payload})
	m.mu.Unlock()

	if m.EmitFn != nil {
		return m.EmitFn(userID, event, payload)
	}
	return m.Err
}

// Events returns a copy of the recorded calls.
func (m *MockPublisher) Events() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishedEvent(nil), m.events...)
}
