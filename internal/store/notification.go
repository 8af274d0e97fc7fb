package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/domain"
)

// NotificationStore defines the interface for notification persistence.
// Every recipient-scoped method treats a notification owned by someone else
// exactly like a missing one.
type NotificationStore interface {
	// Create saves a new notification.
	Create(ctx context.Context, n *domain.Notification) error

	// ListForRecipient returns up to limit notifications for recipientID,
	// newest first, with their senders resolved.
	ListForRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]*domain.NotificationView, error)

	// MarkRead sets read=true on a notification owned by recipientID and
	// returns the updated record.
	// Returns ErrNotificationNotFound if it does not exist or is not theirs.
	MarkRead(ctx context.Context, id, recipientID uuid.UUID) (*domain.Notification, error)

	// Delete removes a notification owned by recipientID.
	// Returns ErrNotificationNotFound if it does not exist or is not theirs.
	Delete(ctx context.Context, id, recipientID uuid.UUID) error

	// WithTx returns a new NotificationStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) NotificationStore
}
