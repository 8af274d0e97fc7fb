package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Team
var (
	ErrEmptyTeamID      = errors.New("team ID cannot be empty")
	ErrEmptyTeamName    = errors.New("team name is required")
	ErrEmptyTeamManager = errors.New("team manager cannot be empty")
)

// Team groups users under a manager.
type Team struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	ManagerID uuid.UUID   `json:"managerId"`
	MemberIDs []uuid.UUID `json:"members"`
	CreatedBy uuid.UUID   `json:"createdBy"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// NewTeam creates a team with a trimmed name and de-duplicated member list.
// Returns an error if validation fails.
func NewTeam(name string, managerID uuid.UUID, memberIDs []uuid.UUID, createdBy uuid.UUID) (*Team, error) {
	now := time.Now().UTC()
	team := &Team{
		ID:        uuid.New(),
		Name:      NormalizeTeamName(name),
		ManagerID: managerID,
		MemberIDs: UniqueIDs(memberIDs),
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := team.Validate(); err != nil {
		return nil, err
	}

	return team, nil
}

// Validate checks if the Team has valid data.
func (t *Team) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTeamID
	}
	if t.Name == "" {
		return ErrEmptyTeamName
	}
	if t.ManagerID == uuid.Nil {
		return ErrEmptyTeamManager
	}
	return nil
}

// HasMember reports whether userID is in the member set.
func (t *Team) HasMember(userID uuid.UUID) bool {
	for _, id := range t.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Includes reports whether userID is the manager or a member.
func (t *Team) Includes(userID uuid.UUID) bool {
	return t.ManagerID == userID || t.HasMember(userID)
}

// NormalizeTeamName trims surrounding whitespace from a team name.
func NormalizeTeamName(name string) string {
	return strings.TrimSpace(name)
}

// MembershipDiff is the set of users whose team back-reference changes when a
// team's member list is replaced.
type MembershipDiff struct {
	Added   []uuid.UUID
	Removed []uuid.UUID
}

// DiffMembers compares the current member set with the requested one.
func DiffMembers(current, next []uuid.UUID) MembershipDiff {
	currentSet := make(map[uuid.UUID]struct{}, len(current))
	for _, id := range current {
		currentSet[id] = struct{}{}
	}
	nextSet := make(map[uuid.UUID]struct{}, len(next))
	for _, id := range next {
		nextSet[id] = struct{}{}
	}

	var diff MembershipDiff
	for _, id := range UniqueIDs(next) {
		if _, ok := currentSet[id]; !ok {
			diff.Added = append(diff.Added, id)
		}
	}
	for _, id := range UniqueIDs(current) {
		if _, ok := nextSet[id]; !ok {
			diff.Removed = append(diff.Removed, id)
		}
	}
	return diff
}

// UniqueIDs returns ids without duplicates or nil UUIDs, preserving order.
func UniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
