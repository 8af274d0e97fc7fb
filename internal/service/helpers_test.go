package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/access"
	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/phrazzld/teamtask-api/internal/events"
	"github.com/stretchr/testify/require"
)

// eventRecorder is an EventEmitter that keeps every emitted task change.
type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	Type   string
	Change events.TaskChange
}

func (r *eventRecorder) EmitEvent(ctx context.Context, event *events.Event) error {
	var change events.TaskChange
	if err := event.UnmarshalPayload(&change); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Type: event.Type, Change: change})
	return nil
}

func (r *eventRecorder) all() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedEvent(nil), r.events...)
}

func (r *eventRecorder) types() []string {
	var out []string
	for _, e := range r.all() {
		out = append(out, e.Type)
	}
	return out
}

func (r *eventRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func actorOf(u *domain.User) access.Actor {
	return access.Actor{ID: u.ID, Role: u.Role}
}

func ptr[T any](v T) *T {
	return &v
}

func requireOnlyEvent(t *testing.T, rec *eventRecorder, eventType string, recipients ...uuid.UUID) {
	t.Helper()
	got := rec.all()
	require.Len(t, got, 1, "events: %v", rec.types())
	require.Equal(t, eventType, got[0].Type)
	require.ElementsMatch(t, recipients, got[0].Change.Recipients)
}
