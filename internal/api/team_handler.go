package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/api/shared"
	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/phrazzld/teamtask-api/internal/platform/logger"
	"github.com/phrazzld/teamtask-api/internal/service"
)

// TeamHandler serves the /api/teams endpoints.
type TeamHandler struct {
	teamService service.TeamService
	logger      *slog.Logger
}

// NewTeamHandler creates a new TeamHandler.
func NewTeamHandler(teamService service.TeamService, logger *slog.Logger) *TeamHandler {
	if logger == nil {
		// ALLOW-PANIC: constructor enforcing required dependency
		panic("logger cannot be nil for TeamHandler")
	}
	return &TeamHandler{
		teamService: teamService,
		logger:      logger.With(slog.String("component", "team_handler")),
	}
}

// CreateTeam handles POST /api/teams.
func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, ok := handleActorFromContext(w, r, log)
	if !ok {
		return
	}

	var req CreateTeamRequest
	if !parseAndValidateRequest(w, r, &req, log) {
		return
	}

	managerID, err := uuid.Parse(req.ManagerID)
	if err != nil {
		HandleAPIError(w, r, domain.NewValidationError("managerId", "has invalid format", domain.ErrInvalidID), "")
		return
	}
	memberIDs, err := parseIDs("memberIds", req.MemberIDs)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	team, err := h.teamService.CreateTeam(r.Context(), actor, service.CreateTeamInput{
		Name:      req.Name,
		ManagerID: managerID,
		MemberIDs: memberIDs,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create team")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, team)
}

// ListTeams handles GET /api/teams.
func (h *TeamHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	actor, ok := handleActorFromContext(w, r, h.logger)
	if !ok {
		return
	}

	teams, err := h.teamService.ListTeams(r.Context(), actor)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list teams")
		return
	}
	if teams == nil {
		teams = []*domain.Team{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, teams)
}

// GetTeam handles GET /api/teams/{id}.
func (h *TeamHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	actor, teamID, ok := handleActorAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	team, err := h.teamService.GetTeam(r.Context(), actor, teamID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get team")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, team)
}

// UpdateTeam handles PUT /api/teams/{id}.
func (h *TeamHandler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, teamID, ok := handleActorAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req UpdateTeamRequest
	if !parseAndValidateRequest(w, r, &req, log) {
		return
	}

	in := service.UpdateTeamInput{Name: req.Name}
	if req.ManagerID != nil {
		managerID, err := uuid.Parse(*req.ManagerID)
		if err != nil {
			HandleAPIError(w, r, domain.NewValidationError("managerId", "has invalid format", domain.ErrInvalidID), "")
			return
		}
		in.ManagerID = &managerID
	}
	if req.MemberIDs != nil {
		memberIDs, err := parseIDs("memberIds", *req.MemberIDs)
		if err != nil {
			HandleAPIError(w, r, err, "")
			return
		}
		in.MemberIDs = &memberIDs
	}

	team, err := h.teamService.UpdateTeam(r.Context(), actor, teamID, in)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update team")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, team)
}

// DeleteTeam handles DELETE /api/teams/{id}.
func (h *TeamHandler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, teamID, ok := handleActorAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	if err := h.teamService.DeleteTeam(r.Context(), actor, teamID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete team")
		return
	}

	log.Info("team deleted", "team_id", teamID)
	shared.RespondWithMessage(w, r, http.StatusOK, "Team deleted successfully")
}
