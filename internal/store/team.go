package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/domain"
)

// TeamStore defines the interface for team data persistence. Member lists are
// stored alongside the team; user back-references are maintained through
// UserStore by the caller, inside the same transaction.
type TeamStore interface {
	// Create saves a new team and its member list.
	// Returns ErrTeamNameExists if the name is taken, case-insensitively.
	Create(ctx context.Context, team *domain.Team) error

	// GetByID retrieves a team with its members.
	// Returns ErrTeamNotFound if the team does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Team, error)

	// GetByIDForUpdate is GetByID that also locks the team row until the
	// enclosing transaction ends.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Team, error)

	// NameExists reports whether another team uses name, compared
	// case-insensitively. excludeID is ignored when it is uuid.Nil.
	NameExists(ctx context.Context, name string, excludeID uuid.UUID) (bool, error)

	// List returns every team ordered by name.
	List(ctx context.Context) ([]*domain.Team, error)

	// Update persists the team's name, manager and member list.
	// Returns ErrTeamNotFound if the team does not exist.
	// Returns ErrTeamNameExists if the new name is taken.
	Update(ctx context.Context, team *domain.Team) error

	// Delete removes a team and its member list.
	// Returns ErrTeamNotFound if the team does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new TeamStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TeamStore
}
