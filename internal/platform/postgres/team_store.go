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

const teamColumns = `id, name, manager_id, created_by, created_at, updated_at`

// PostgresTeamStore implements the store.TeamStore interface. Members are
// kept in team_members in the order they were given.
type PostgresTeamStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTeamStore creates a new PostgreSQL implementation of the TeamStore interface.
func NewPostgresTeamStore(db store.DBTX, logger *slog.Logger) *PostgresTeamStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTeamStore{
		db:     db,
		logger: logger.With(slog.String("component", "team_store")),
	}
}

var _ store.TeamStore = (*PostgresTeamStore)(nil)

// WithTx implements store.TeamStore.WithTx
func (s *PostgresTeamStore) WithTx(tx *sql.Tx) store.TeamStore {
	return &PostgresTeamStore{db: tx, logger: s.logger}
}

func scanTeam(row rowScanner) (*domain.Team, error) {
	var (
		team      domain.Team
		createdBy uuid.NullUUID
	)
	if err := row.Scan(
		&team.ID,
		&team.Name,
		&team.ManagerID,
		&createdBy,
		&team.CreatedAt,
		&team.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if createdBy.Valid {
		team.CreatedBy = createdBy.UUID
	}
	team.MemberIDs = []uuid.UUID{}
	return &team, nil
}

// mapTeamWriteError converts a failed team insert or update.
func mapTeamWriteError(err error) error {
	if ConstraintField(err) == "name" {
		return store.ErrTeamNameExists
	}
	if IsForeignKeyViolation(err) {
		return fmt.Errorf("%w: manager or member does not exist", store.ErrInvalidEntity)
	}
	return MapError(err)
}

// Create implements store.TeamStore.Create
func (s *PostgresTeamStore) Create(ctx context.Context, team *domain.Team) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := team.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO teams (` + teamColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	createdBy := nullUUID(&team.CreatedBy)
	if _, err := s.db.ExecContext(ctx, query,
		team.ID, team.Name, team.ManagerID, createdBy, team.CreatedAt, team.UpdatedAt,
	); err != nil {
		log.Warn("failed to create team",
			slog.String("error", err.Error()),
			slog.String("team_id", team.ID.String()))
		return mapTeamWriteError(err)
	}

	if err := s.insertMembers(ctx, team.ID, team.MemberIDs); err != nil {
		return err
	}

	log.Info("team created",
		slog.String("team_id", team.ID.String()),
		slog.Int("members", len(team.MemberIDs)))
	return nil
}

func (s *PostgresTeamStore) insertMembers(ctx context.Context, teamID uuid.UUID, memberIDs []uuid.UUID) error {
	if len(memberIDs) == 0 {
		return nil
	}
	query := `
		INSERT INTO team_members (team_id, user_id, position)
		SELECT $1, m.user_id, m.ord
		FROM UNNEST($2::uuid[]) WITH ORDINALITY AS m(user_id, ord)
	`
	if _, err := s.db.ExecContext(ctx, query, teamID, uuidArray(memberIDs)); err != nil {
		return mapTeamWriteError(err)
	}
	return nil
}

func (s *PostgresTeamStore) getByID(ctx context.Context, id uuid.UUID, forUpdate bool) (*domain.Team, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	team, err := scanTeam(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTeamNotFound
		}
		log.Error("failed to get team",
			slog.String("error", err.Error()),
			slog.String("team_id", id.String()))
		return nil, MapError(err)
	}

	members, err := s.members(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	team.MemberIDs = append(team.MemberIDs, members[id]...)
	return team, nil
}

// members loads member lists for the given teams keyed by team ID.
func (s *PostgresTeamStore) members(ctx context.Context, teamIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	query := `
		SELECT team_id, user_id
		FROM team_members
		WHERE team_id = ANY($1::uuid[])
		ORDER BY team_id, position
	`
	rows, err := s.db.QueryContext(ctx, query, uuidArray(teamIDs))
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[uuid.UUID][]uuid.UUID, len(teamIDs))
	for rows.Next() {
		var teamID, userID uuid.UUID
		if err := rows.Scan(&teamID, &userID); err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}
		out[teamID] = append(out[teamID], userID)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

// GetByID implements store.TeamStore.GetByID
func (s *PostgresTeamStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Team, error) {
	return s.getByID(ctx, id, false)
}

// GetByIDForUpdate implements store.TeamStore.GetByIDForUpdate
func (s *PostgresTeamStore) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Team, error) {
	return s.getByID(ctx, id, true)
}

// NameExists implements store.TeamStore.NameExists
func (s *PostgresTeamStore) NameExists(ctx context.Context, name string, excludeID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM teams WHERE LOWER(name) = LOWER($1) AND id <> $2)`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, name, excludeID).Scan(&exists); err != nil {
		return false, MapError(err)
	}
	return exists, nil
}

// List implements store.TeamStore.List
func (s *PostgresTeamStore) List(ctx context.Context) ([]*domain.Team, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `SELECT `+teamColumns+` FROM teams ORDER BY name, id`)
	if err != nil {
		log.Error("failed to list teams", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	teams := []*domain.Team{}
	ids := []uuid.UUID{}
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, team)
		ids = append(ids, team.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	if len(teams) == 0 {
		return teams, nil
	}

	members, err := s.members(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, team := range teams {
		team.MemberIDs = append(team.MemberIDs, members[team.ID]...)
	}
	return teams, nil
}

// Update implements store.TeamStore.Update
func (s *PostgresTeamStore) Update(ctx context.Context, team *domain.Team) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := team.Validate(); err != nil {
		return err
	}

	query := `UPDATE teams SET name = $1, manager_id = $2, updated_at = $3 WHERE id = $4`
	result, err := s.db.ExecContext(ctx, query, team.Name, team.ManagerID, team.UpdatedAt, team.ID)
	if err != nil {
		log.Warn("failed to update team",
			slog.String("error", err.Error()),
			slog.String("team_id", team.ID.String()))
		return mapTeamWriteError(err)
	}
	if err := CheckRowsAffected(result, store.ErrTeamNotFound); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM team_members WHERE team_id = $1`, team.ID); err != nil {
		return MapError(err)
	}
	if err := s.insertMembers(ctx, team.ID, team.MemberIDs); err != nil {
		return err
	}

	log.Info("team updated",
		slog.String("team_id", team.ID.String()),
		slog.Int("members", len(team.MemberIDs)))
	return nil
}

// Delete implements store.TeamStore.Delete
func (s *PostgresTeamStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete team",
			slog.String("error", err.Error()),
			slog.String("team_id", id.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrTeamNotFound); err != nil {
		return err
	}

	log.Info("team deleted", slog.String("team_id", id.String()))
	return nil
}
