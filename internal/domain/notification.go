package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NotificationType identifies what happened to a task.
type NotificationType string

// Possible notification type values
const (
	NotificationTaskAssigned  NotificationType = "task_assigned"
	NotificationTaskCompleted NotificationType = "task_completed"
	NotificationTaskUpdated   NotificationType = "task_updated"
	NotificationTaskDeleted   NotificationType = "task_deleted"
)

// Common validation errors for Notification
var (
	ErrInvalidNotificationType = errors.New("invalid notification type")
)

// ParseNotificationType validates a raw notification type.
func ParseNotificationType(s string) (NotificationType, error) {
	t := NotificationType(strings.TrimSpace(s))
	switch t {
	case NotificationTaskAssigned, NotificationTaskCompleted,
		NotificationTaskUpdated, NotificationTaskDeleted:
		return t, nil
	default:
		return "", NewValidationError("type", "is not a known notification type", ErrInvalidNotificationType)
	}
}

// Notification is a persisted message to a single recipient.
type Notification struct {
	ID          uuid.UUID        `json:"id"`
	RecipientID uuid.UUID        `json:"recipientId"`
	SenderID    uuid.UUID        `json:"senderId"`
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Read        bool             `json:"read"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// NewNotification creates an unread notification.
// All five inputs are required; the first missing one is reported.
func NewNotification(
	notificationType NotificationType,
	title, message string,
	recipientID, senderID uuid.UUID,
) (*Notification, error) {
	n := &Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		SenderID:    senderID,
		Type:        notificationType,
		Title:       strings.TrimSpace(title),
		Message:     strings.TrimSpace(message),
		Read:        false,
		CreatedAt:   time.Now().UTC(),
	}

	if err := n.Validate(); err != nil {
		return nil, err
	}

	return n, nil
}

// Validate checks if the Notification has valid data.
func (n *Notification) Validate() error {
	if n.Type == "" {
		return NewValidationError("type", "is required", nil)
	}
	if _, err := ParseNotificationType(string(n.Type)); err != nil {
		return err
	}
	if n.Title == "" {
		return NewValidationError("title", "is required", nil)
	}
	if n.Message == "" {
		return NewValidationError("message", "is required", nil)
	}
	if n.RecipientID == uuid.Nil {
		return NewValidationError("recipient", "is required", nil)
	}
	if n.SenderID == uuid.Nil {
		return NewValidationError("sender", "is required", nil)
	}
	return nil
}

// NotificationView is a notification with its sender resolved for display.
// Sender is nil when the sending user no longer exists.
type NotificationView struct {
	Notification
	Sender *UserSummary `json:"sender,omitempty"`
}
