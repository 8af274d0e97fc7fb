package mocks

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/phrazzld/teamtask-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// TestifyMockNotificationStore is a mock of store.NotificationStore for use with testify/mock
type TestifyMockNotificationStore struct {
	mock.Mock
}

var _ store.NotificationStore = (*TestifyMockNotificationStore)(nil)

// Create is a mock implementation of store.NotificationStore.Create
func (m *TestifyMockNotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// ListForRecipient is a mock implementation of store.NotificationStore.ListForRecipient
func (m *TestifyMockNotificationStore) ListForRecipient(
	ctx context.Context,
	recipientID uuid.UUID,
	limit int,
) ([]*domain.NotificationView, error) {
	args := m.Called(ctx, recipientID, limit)
	if views, ok := args.Get(0).([]*domain.NotificationView); ok {
		return views, args.Error(1)
	}
	return nil, args.Error(1)
}

// MarkRead is a mock implementation of store.NotificationStore.MarkRead
func (m *TestifyMockNotificationStore) MarkRead(
	ctx context.Context,
	id, recipientID uuid.UUID,
) (*domain.Notification, error) {
	args := m.Called(ctx, id, recipientID)
	if n, ok := args.Get(0).(*domain.Notification); ok {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

// Delete is a mock implementation of store.NotificationStore.Delete
func (m *TestifyMockNotificationStore) Delete(ctx context.Context, id, recipientID uuid.UUID) error {
	args := m.Called(ctx, id, recipientID)
	return args.Error(0)
}

// WithTx returns the mock itself.
func (m *TestifyMockNotificationStore) WithTx(tx *sql.Tx) store.NotificationStore {
	return m
}
