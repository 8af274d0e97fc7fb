package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/access"
	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/phrazzld/teamtask-api/internal/platform/logger"
	"github.com/phrazzld/teamtask-api/internal/store"
)

// CreateTeamInput carries the fields of a new team.
type CreateTeamInput struct {
	Name      string
	ManagerID uuid.UUID
	MemberIDs []uuid.UUID
}

// UpdateTeamInput is a partial update; nil fields are left unchanged. A
// non-nil MemberIDs replaces the whole member list.
type UpdateTeamInput struct {
	Name      *string
	ManagerID *uuid.UUID
	MemberIDs *[]uuid.UUID
}

// TeamService manages teams and keeps each user's team back-reference in
// step with team membership. Every mutation runs in one transaction.
type TeamService interface {
	CreateTeam(ctx context.Context, actor access.Actor, in CreateTeamInput) (*domain.Team, error)
	UpdateTeam(ctx context.Context, actor access.Actor, teamID uuid.UUID, in UpdateTeamInput) (*domain.Team, error)
	DeleteTeam(ctx context.Context, actor access.Actor, teamID uuid.UUID) error
	GetTeam(ctx context.Context, actor access.Actor, teamID uuid.UUID) (*domain.Team, error)
	ListTeams(ctx context.Context, actor access.Actor) ([]*domain.Team, error)
}

type teamServiceImpl struct {
	tx     TxRunner
	teams  store.TeamStore
	users  store.UserStore
	now    func() time.Time
	logger *slog.Logger
}

// NewTeamService creates a TeamService.
func NewTeamService(
	tx TxRunner,
	teams store.TeamStore,
	users store.UserStore,
	logger *slog.Logger,
) (TeamService, error) {
	if tx == nil {
		return nil, domain.NewValidationError("tx", "cannot be nil", domain.ErrValidation)
	}
	if teams == nil {
		return nil, domain.NewValidationError("teams", "cannot be nil", domain.ErrValidation)
	}
	if users == nil {
		return nil, domain.NewValidationError("users", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &teamServiceImpl{
		tx:     tx,
		teams:  teams,
		users:  users,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With(slog.String("component", "team_service")),
	}, nil
}

// CreateTeam implements TeamService.CreateTeam.
func (s *teamServiceImpl) CreateTeam(
	ctx context.Context,
	actor access.Actor,
	in CreateTeamInput,
) (*domain.Team, error) {
	const op = "create team"
	log := logger.FromContextOrDefault(ctx, s.logger)

	if access.AuthorizeTeamMutation(actor) != access.Allow {
		return nil, forbidden(op)
	}

	team, err := domain.NewTeam(in.Name, in.ManagerID, in.MemberIDs, actor.ID)
	if err != nil {
		return nil, validationFrom(teamField(err), err)
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		teams := s.teams.WithTx(tx)
		users := s.users.WithTx(tx)

		if err := s.ensureNameFree(ctx, teams, team.Name, uuid.Nil); err != nil {
			return err
		}
		if err := s.ensureManager(ctx, users, team.ManagerID); err != nil {
			return err
		}
		if err := s.ensureMembers(ctx, users, team.MemberIDs); err != nil {
			return err
		}

		if err := teams.Create(ctx, team); err != nil {
			return translateStoreError(err)
		}
		return users.SetTeam(ctx, included(team.ManagerID, team.MemberIDs), &team.ID)
	})
	if err != nil {
		logTeamFailure(log, op, err, "team_name", team.Name)
		return nil, NewServiceError(op, "could not create team", translateStoreError(err))
	}

	log.Info("team created",
		"team_id", team.ID,
		"manager_id", team.ManagerID,
		"member_count", len(team.MemberIDs))
	return team, nil
}

// UpdateTeam implements TeamService.UpdateTeam. The whole membership diff is
// applied in one transaction; validation failures leave everything unchanged.
func (s *teamServiceImpl) UpdateTeam(
	ctx context.Context,
	actor access.Actor,
	teamID uuid.UUID,
	in UpdateTeamInput,
) (*domain.Team, error) {
	const op = "update team"
	log := logger.FromContextOrDefault(ctx, s.logger)

	if access.AuthorizeTeamMutation(actor) != access.Allow {
		return nil, forbidden(op)
	}

	var name string
	if in.Name != nil {
		name = domain.NormalizeTeamName(*in.Name)
		if name == "" {
			return nil, validationFrom("name", domain.ErrEmptyTeamName)
		}
	}
	if in.ManagerID != nil && *in.ManagerID == uuid.Nil {
		return nil, validationFrom("managerId", domain.ErrEmptyTeamManager)
	}

	var result *domain.Team
	err := s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		teams := s.teams.WithTx(tx)
		users := s.users.WithTx(tx)

		team, err := teams.GetByIDForUpdate(ctx, teamID)
		if err != nil {
			return translateStoreError(err)
		}
		previous := included(team.ManagerID, team.MemberIDs)

		if in.Name != nil {
			if err := s.ensureNameFree(ctx, teams, name, team.ID); err != nil {
				return err
			}
			team.Name = name
		}
		if in.ManagerID != nil {
			if err := s.ensureManager(ctx, users, *in.ManagerID); err != nil {
				return err
			}
			team.ManagerID = *in.ManagerID
		}
		if in.MemberIDs != nil {
			members := domain.UniqueIDs(*in.MemberIDs)
			if err := s.ensureMembers(ctx, users, members); err != nil {
				return err
			}
			team.MemberIDs = members
		}
		team.UpdatedAt = s.now()

		if err := teams.Update(ctx, team); err != nil {
			return translateStoreError(err)
		}

		diff := domain.DiffMembers(previous, included(team.ManagerID, team.MemberIDs))
		if err := s.detach(ctx, users, team.ID, diff.Removed); err != nil {
			return err
		}
		if len(diff.Added) > 0 {
			if err := users.SetTeam(ctx, diff.Added, &team.ID); err != nil {
				return err
			}
		}

		log.Debug("team membership synchronized",
			"team_id", team.ID,
			"added", len(diff.Added),
			"removed", len(diff.Removed))
		result = team
		return nil
	})
	if err != nil {
		logTeamFailure(log, op, err, "team_id", teamID)
		return nil, NewServiceError(op, "could not update team", translateStoreError(err))
	}

	log.Info("team updated", "team_id", result.ID)
	return result, nil
}

// DeleteTeam implements TeamService.DeleteTeam.
func (s *teamServiceImpl) DeleteTeam(ctx context.Context, actor access.Actor, teamID uuid.UUID) error {
	const op = "delete team"
	log := logger.FromContextOrDefault(ctx, s.logger)

	if access.AuthorizeTeamMutation(actor) != access.Allow {
		return forbidden(op)
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		teams := s.teams.WithTx(tx)
		users := s.users.WithTx(tx)

		team, err := teams.GetByIDForUpdate(ctx, teamID)
		if err != nil {
			return translateStoreError(err)
		}
		if err := users.ClearTeam(ctx, team.ID); err != nil {
			return err
		}
		return teams.Delete(ctx, team.ID)
	})
	if err != nil {
		logTeamFailure(log, op, err, "team_id", teamID)
		return NewServiceError(op, "could not delete team", translateStoreError(err))
	}

	log.Info("team deleted", "team_id", teamID)
	return nil
}

// GetTeam implements TeamService.GetTeam.
func (s *teamServiceImpl) GetTeam(ctx context.Context, actor access.Actor, teamID uuid.UUID) (*domain.Team, error) {
	const op = "get team"

	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		logTeamFailure(logger.FromContextOrDefault(ctx, s.logger), op, err, "team_id", teamID)
		return nil, NewServiceError(op, "failed to load team", translateStoreError(err))
	}
	if access.AuthorizeTeamRead(actor, team) != access.Allow {
		return nil, forbidden(op)
	}
	return team, nil
}

// ListTeams implements TeamService.ListTeams. Any authenticated role may list.
func (s *teamServiceImpl) ListTeams(ctx context.Context, actor access.Actor) ([]*domain.Team, error) {
	if actor.ID == uuid.Nil || !actor.Role.IsValid() {
		return nil, NewServiceError("list teams", "no authenticated actor", domain.ErrUnauthenticated)
	}

	teams, err := s.teams.List(ctx)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list teams", "error", err)
		return nil, NewServiceError("list teams", "failed to load teams", translateStoreError(err))
	}
	return teams, nil
}

func (s *teamServiceImpl) ensureNameFree(
	ctx context.Context,
	teams store.TeamStore,
	name string,
	excludeID uuid.UUID,
) error {
	exists, err := teams.NameExists(ctx, name, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check team name: %w", err)
	}
	if exists {
		return domain.NewConflictError("name", store.ErrTeamNameExists)
	}
	return nil
}

func (s *teamServiceImpl) ensureManager(ctx context.Context, users store.UserStore, managerID uuid.UUID) error {
	manager, err := users.GetByID(ctx, managerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NewValidationError("managerId", "must reference an existing user", ErrUnknownUser)
		}
		return fmt.Errorf("failed to load manager: %w", err)
	}
	if manager.Role != domain.RoleManager {
		return domain.NewValidationError("managerId", "must reference a user with the manager role", ErrNotAManager)
	}
	return nil
}

func (s *teamServiceImpl) ensureMembers(ctx context.Context, users store.UserStore, memberIDs []uuid.UUID) error {
	if len(memberIDs) == 0 {
		return nil
	}
	found, err := users.GetByIDs(ctx, memberIDs)
	if err != nil {
		return fmt.Errorf("failed to load members: %w", err)
	}
	if len(found) != len(memberIDs) {
		return domain.NewValidationError("members", "must reference existing users", ErrUnknownUser)
	}
	return nil
}

// detach clears the back-reference of the given users that still point at
// teamID. Users who have since joined another team are left alone.
func (s *teamServiceImpl) detach(ctx context.Context, users store.UserStore, teamID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	current, err := users.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load removed members: %w", err)
	}

	stale := make([]uuid.UUID, 0, len(current))
	for _, u := range current {
		if u.InTeam(teamID) {
			stale = append(stale, u.ID)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	return users.SetTeam(ctx, stale, nil)
}

// included returns the manager followed by the members, without duplicates.
func included(managerID uuid.UUID, memberIDs []uuid.UUID) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(memberIDs)+1)
	ids = append(ids, managerID)
	ids = append(ids, memberIDs...)
	return domain.UniqueIDs(ids)
}

func teamField(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyTeamName):
		return "name"
	case errors.Is(err, domain.ErrEmptyTeamManager):
		return "managerId"
	default:
		return ""
	}
}

func logTeamFailure(log *slog.Logger, op string, err error, attrs ...any) {
	attrs = append(attrs, "error", err, "operation", op)
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, store.ErrNotFound):
		log.Debug("team operation rejected", attrs...)
	default:
		log.Error("team operation failed", attrs...)
	}
}
