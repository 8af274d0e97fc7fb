package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/phrazzld/teamtask-api/internal/events"
)

// Dispatcher is the part of NotificationService the event handler needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, in DispatchInput) (*domain.Notification, error)
}

// NotificationEventHandler turns task change events into notifications.
type NotificationEventHandler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewNotificationEventHandler creates the handler.
func NewNotificationEventHandler(dispatcher Dispatcher, logger *slog.Logger) *NotificationEventHandler {
	return &NotificationEventHandler{
		dispatcher: dispatcher,
		logger:     logger.With("component", "notification_event_handler"),
	}
}

type notificationTemplate struct {
	kind    domain.NotificationType
	title   string
	message string
}

var taskEventTemplates = map[string]notificationTemplate{
	events.TypeTaskAssigned: {
		kind:    domain.NotificationTaskAssigned,
		title:   "New task assigned",
		message: "You have been assigned to %q",
	},
	events.TypeTaskCompleted: {
		kind:    domain.NotificationTaskCompleted,
		title:   "Task completed",
		message: "%q has been marked as completed",
	},
	events.TypeTaskUpdated: {
		kind:    domain.NotificationTaskUpdated,
		title:   "Task updated",
		message: "%q has been updated",
	},
	events.TypeTaskDeleted: {
		kind:    domain.NotificationTaskDeleted,
		title:   "Task deleted",
		message: "%q has been deleted",
	},
}

// HandleEvent implements events.EventHandler. The actor never notifies
// themself and each recipient is notified once.
func (h *NotificationEventHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	tmpl, ok := taskEventTemplates[event.Type]
	if !ok {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var change events.TaskChange
	if err := event.UnmarshalPayload(&change); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	var result *multierror.Error
	for _, recipient := range domain.UniqueIDs(change.Recipients) {
		if recipient == change.ActorID || recipient == uuid.Nil {
			continue
		}
		_, err := h.dispatcher.Dispatch(ctx, DispatchInput{
			Type:        string(tmpl.kind),
			Title:       tmpl.title,
			Message:     fmt.Sprintf(tmpl.message, change.TaskTitle),
			RecipientID: recipient,
			SenderID:    change.ActorID,
		})
		if err != nil {
			h.logger.Error("failed to dispatch task notification",
				"error", err,
				"event_id", event.ID,
				"recipient_id", recipient)
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
