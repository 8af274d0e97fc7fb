package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/phrazzld/teamtask-api/internal/platform/logger"
	"github.com/phrazzld/teamtask-api/internal/store"
)

const notificationColumns = `id, recipient_id, sender_id, type, title, message, read, created_at`

// PostgresNotificationStore implements the store.NotificationStore interface
// using a PostgreSQL database as the storage backend.
type PostgresNotificationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresNotificationStore creates a new PostgreSQL implementation of the
// NotificationStore interface.
func NewPostgresNotificationStore(db store.DBTX, logger *slog.Logger) *PostgresNotificationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresNotificationStore{
		db:     db,
		logger: logger.With(slog.String("component", "notification_store")),
	}
}

var _ store.NotificationStore = (*PostgresNotificationStore)(nil)

// WithTx implements store.NotificationStore.WithTx
func (s *PostgresNotificationStore) WithTx(tx *sql.Tx) store.NotificationStore {
	return &PostgresNotificationStore{db: tx, logger: s.logger}
}

func scanNotification(row rowScanner, extra ...any) (*domain.Notification, error) {
	var (
		n        domain.Notification
		senderID uuid.NullUUID
		typ      string
	)
	dest := append([]any{
		&n.ID,
		&n.RecipientID,
		&senderID,
		&typ,
		&n.Title,
		&n.Message,
		&n.Read,
		&n.CreatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	n.SenderID = senderID.UUID
	n.Type = domain.NotificationType(typ)
	return &n, nil
}

// Create implements store.NotificationStore.Create
func (s *PostgresNotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := n.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		n.ID, n.RecipientID, n.SenderID, string(n.Type), n.Title, n.Message, n.Read, n.CreatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: recipient or sender does not exist", store.ErrInvalidEntity)
		}
		log.Error("failed to create notification",
			slog.String("error", err.Error()),
			slog.String("notification_id", n.ID.String()))
		return MapError(err)
	}

	log.Debug("notification created",
		slog.String("notification_id", n.ID.String()),
		slog.String("recipient_id", n.RecipientID.String()),
		slog.String("type", string(n.Type)))
	return nil
}

// ListForRecipient implements store.NotificationStore.ListForRecipient
func (s *PostgresNotificationStore) ListForRecipient(
	ctx context.Context,
	recipientID uuid.UUID,
	limit int,
) ([]*domain.NotificationView, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT n.id, n.recipient_id, n.sender_id, n.type, n.title, n.message, n.read, n.created_at,
			u.id, u.full_name, u.email
		FROM notifications n
		LEFT JOIN users u ON u.id = n.sender_id
		WHERE n.recipient_id = $1
		ORDER BY n.created_at DESC, n.id
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, recipientID, limit)
	if err != nil {
		log.Error("failed to list notifications",
			slog.String("error", err.Error()),
			slog.String("recipient_id", recipientID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	views := []*domain.NotificationView{}
	for rows.Next() {
		var (
			senderID    uuid.NullUUID
			senderName  sql.NullString
			senderEmail sql.NullString
		)
		n, err := scanNotification(rows, &senderID, &senderName, &senderEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		view := &domain.NotificationView{Notification: *n}
		if senderID.Valid {
			view.Sender = &domain.UserSummary{
				ID:       senderID.UUID,
				FullName: senderName.String,
				Email:    senderEmail.String,
			}
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return views, nil
}

// MarkRead implements store.NotificationStore.MarkRead
func (s *PostgresNotificationStore) MarkRead(
	ctx context.Context,
	id, recipientID uuid.UUID,
) (*domain.Notification, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE notifications
		SET read = TRUE
		WHERE id = $1 AND recipient_id = $2
		RETURNING ` + notificationColumns
	n, err := scanNotification(s.db.QueryRowContext(ctx, query, id, recipientID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotificationNotFound
		}
		log.Error("failed to mark notification read",
			slog.String("error", err.Error()),
			slog.String("notification_id", id.String()))
		return nil, MapError(err)
	}
	return n, nil
}

// Delete implements store.NotificationStore.Delete
func (s *PostgresNotificationStore) Delete(ctx context.Context, id, recipientID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = $1 AND recipient_id = $2`, id, recipientID)
	if err != nil {
		log.Error("failed to delete notification",
			slog.String("error", err.Error()),
			slog.String("notification_id", id.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrNotificationNotFound)
}
