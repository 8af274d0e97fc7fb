package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestNewNotification(t *testing.T) {
	t.Parallel()
	recipient, sender := uuid.New(), uuid.New()

	n, err := NewNotification(NotificationTaskAssigned, "New task", "You have a task", recipient, sender)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if n.Read {
		t.Error("Expected new notification to be unread")
	}
	if n.RecipientID != recipient || n.SenderID != sender {
		t.Error("Expected recipient and sender to be kept")
	}

	tests := []struct {
		name      string
		typ       NotificationType
		title     string
		message   string
		recipient uuid.UUID
		sender    uuid.UUID
		field     string
	}{
		{"missing type", "", "t", "m", recipient, sender, "type"},
		{"unknown type", "task_archived", "t", "m", recipient, sender, "type"},
		{"missing title", NotificationTaskUpdated, " ", "m", recipient, sender, "title"},
		{"missing message", NotificationTaskUpdated, "t", "", recipient, sender, "message"},
		{"missing recipient", NotificationTaskUpdated, "t", "m", uuid.Nil, sender, "recipient"},
		{"missing sender", NotificationTaskUpdated, "t", "m", recipient, uuid.Nil, "sender"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewNotification(tc.typ, tc.title, tc.message, tc.recipient, tc.sender)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("Expected validation error, got %v", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected *ValidationError, got %T", err)
			}
			if verr.Field != tc.field {
				t.Errorf("Expected field %q, got %q", tc.field, verr.Field)
			}
		})
	}
}
