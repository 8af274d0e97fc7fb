package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/phrazzld/teamtask-api/internal/platform/logger"
	"github.com/phrazzld/teamtask-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var notificationRowColumns = []string{
	"id", "recipient_id", "sender_id", "type", "title", "message", "read", "created_at",
}

func TestPostgresNotificationStore_Create(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresNotificationStore(db, logger.Discard())

	n, err := domain.NewNotification(domain.NotificationTaskAssigned, "T", "M", uuid.New(), uuid.New())
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WithArgs(n.ID.String(), n.RecipientID.String(), n.SenderID.String(), "task_assigned", "T", "M", false,
			sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Create(context.Background(), n))
}

func TestPostgresNotificationStore_ListForRecipient(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresNotificationStore(db, logger.Discard())

	recipient, sender := uuid.New(), uuid.New()
	now := time.Now().UTC()
	cols := append(append([]string{}, notificationRowColumns...), "sender_id", "full_name", "email")

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY n.created_at DESC")).
		WithArgs(recipient.String(), 50).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(uuid.New().String(), recipient.String(), sender.String(), "task_updated", "T", "M", false, now,
				sender.String(), "Grace", "grace@example.com").
			AddRow(uuid.New().String(), recipient.String(), nil, "task_deleted", "T2", "M2", true, now.Add(-time.Minute),
				nil, nil, nil))

	views, err := s.ListForRecipient(context.Background(), recipient, 50)
	require.NoError(t, err)
	require.Len(t, views, 2)

	require.NotNil(t, views[0].Sender)
	assert.Equal(t, "Grace", views[0].Sender.FullName)
	assert.Equal(t, sender, views[0].SenderID)
	assert.Nil(t, views[1].Sender, "deleted sender resolves to nothing")
	assert.Equal(t, uuid.Nil, views[1].SenderID)
}

func TestPostgresNotificationStore_MarkRead(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresNotificationStore(db, logger.Discard())

	id, recipient := uuid.New(), uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("SET read = TRUE")).
		WithArgs(id.String(), recipient.String()).
		WillReturnRows(sqlmock.NewRows(notificationRowColumns).
			AddRow(id.String(), recipient.String(), uuid.New().String(), "task_assigned", "T", "M", true, now))
	mock.ExpectQuery(regexp.QuoteMeta("SET read = TRUE")).WillReturnError(sql.ErrNoRows)

	n, err := s.MarkRead(context.Background(), id, recipient)
	require.NoError(t, err)
	assert.True(t, n.Read)

	_, err = s.MarkRead(context.Background(), id, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotificationNotFound)
}

func TestPostgresNotificationStore_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresNotificationStore(db, logger.Discard())

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notifications")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notifications")).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Delete(context.Background(), uuid.New(), uuid.New()))
	assert.ErrorIs(t, s.Delete(context.Background(), uuid.New(), uuid.New()), store.ErrNotificationNotFound)
}
