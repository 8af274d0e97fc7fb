package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user to the store.
	// Returns ErrEmailExists if the email is already taken.
	// Returns validation errors from the domain User if data is invalid.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByIDs retrieves every user whose ID is in ids. Unknown IDs are
	// skipped; callers compare lengths to detect them.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error)

	// SetTeam points the team back-reference of every listed user at teamID.
	// A nil teamID clears the reference.
	SetTeam(ctx context.Context, userIDs []uuid.UUID, teamID *uuid.UUID) error

	// ClearTeam clears the back-reference of every user currently pointing at
	// teamID.
	ClearTeam(ctx context.Context, teamID uuid.UUID) error

	// UpdatePreferences replaces the user's notification preferences.
	// Returns ErrUserNotFound if the user does not exist.
	UpdatePreferences(ctx context.Context, id uuid.UUID, prefs domain.NotificationPreferences) error

	// Delete removes a user from the store by their ID.
	// Returns ErrUserNotFound if the user does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new UserStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) UserStore
}
