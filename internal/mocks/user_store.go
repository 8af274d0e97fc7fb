package mocks

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/phrazzld/teamtask-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// TestifyMockUserStore is a mock of store.UserStore interface for use with testify/mock
type TestifyMockUserStore struct {
	mock.Mock
}

var _ store.UserStore = (*TestifyMockUserStore)(nil)

// Create is a mock implementation of store.UserStore.Create
func (m *TestifyMockUserStore) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// GetByID is a mock implementation of store.UserStore.GetByID
func (m *TestifyMockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if user, ok := args.Get(0).(*domain.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

// GetByEmail is a mock implementation of store.UserStore.GetByEmail
func (m *TestifyMockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if user, ok := args.Get(0).(*domain.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

// GetByIDs is a mock implementation of store.UserStore.GetByIDs
func (m *TestifyMockUserStore) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error) {
	args := m.Called(ctx, ids)
	if users, ok := args.Get(0).([]*domain.User); ok {
		return users, args.Error(1)
	}
	return nil, args.Error(1)
}

// SetTeam is a mock implementation of store.UserStore.SetTeam
func (m *TestifyMockUserStore) SetTeam(ctx context.Context, userIDs []uuid.UUID, teamID *uuid.UUID) error {
	args := m.Called(ctx, userIDs, teamID)
	return args.Error(0)
}

// ClearTeam is a mock implementation of store.UserStore.ClearTeam
func (m *TestifyMockUserStore) ClearTeam(ctx context.Context, teamID uuid.UUID) error {
	args := m.Called(ctx, teamID)
	return args.Error(0)
}

// UpdatePreferences is a mock implementation of store.UserStore.UpdatePreferences
func (m *TestifyMockUserStore) UpdatePreferences(
	ctx context.Context,
	id uuid.UUID,
	prefs domain.NotificationPreferences,
) error {
	args := m.Called(ctx, id, prefs)
	return args.Error(0)
}

// Delete is a mock implementation of store.UserStore.Delete
func (m *TestifyMockUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// WithTx is a mock implementation of store.UserStore.WithTx.
// Without an expectation it returns the mock itself.
func (m *TestifyMockUserStore) WithTx(tx *sql.Tx) store.UserStore {
	for _, call := range m.ExpectedCalls {
		if call.Method == "WithTx" {
			args := m.Called(tx)
			if ret, ok := args.Get(0).(store.UserStore); ok {
				return ret
			}
			break
		}
	}
	return m
}
