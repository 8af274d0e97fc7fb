package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/phrazzld/teamtask-api/internal/store"
)

// Recipient is what the dispatcher needs to know about a notification
// recipient.
type Recipient struct {
	ID          uuid.UUID
	FullName    string
	Email       string
	Preferences domain.NotificationPreferences
}

// PreferenceStore is a read-only view over users' notification settings and
// contact addresses.
type PreferenceStore interface {
	// Lookup returns the recipient profile of userID.
	// Returns an error wrapping domain.ErrNotFound if the user does not exist.
	Lookup(ctx context.Context, userID uuid.UUID) (Recipient, error)
}

// UserPreferenceStore reads preferences from the user store.
type UserPreferenceStore struct {
	users store.UserStore
}

// NewUserPreferenceStore creates a PreferenceStore backed by users.
func NewUserPreferenceStore(users store.UserStore) *UserPreferenceStore {
	return &UserPreferenceStore{users: users}
}

// Lookup implements PreferenceStore.
func (s *UserPreferenceStore) Lookup(ctx context.Context, userID uuid.UUID) (Recipient, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return Recipient{}, fmt.Errorf("failed to look up recipient: %w", translateStoreError(err))
	}
	return Recipient{
		ID:          user.ID,
		FullName:    user.FullName,
		Email:       user.Email,
		Preferences: user.NotificationPreferences,
	}, nil
}
