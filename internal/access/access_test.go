package access

import (
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestAuthorize(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	assignee := uuid.New()
	stranger := uuid.New()
	empty := uuid.Nil

	tests := []struct {
		name     string
		actor    Actor
		assignee *uuid.UUID
		action   Action
		want     Decision
	}{
		{"owner reads", Actor{owner, domain.RoleUser}, &assignee, ActionRead, Allow},
		{"owner updates", Actor{owner, domain.RoleUser}, &assignee, ActionUpdate, Allow},
		{"owner cannot delete", Actor{owner, domain.RoleUser}, &assignee, ActionDelete, Deny},
		{"assignee reads", Actor{assignee, domain.RoleUser}, &assignee, ActionRead, Allow},
		{"assignee updates", Actor{assignee, domain.RoleUser}, &assignee, ActionUpdate, Allow},
		{"assignee cannot delete", Actor{assignee, domain.RoleUser}, &assignee, ActionDelete, Deny},
		{"stranger cannot read", Actor{stranger, domain.RoleUser}, &assignee, ActionRead, Deny},
		{"stranger cannot update", Actor{stranger, domain.RoleUser}, &assignee, ActionUpdate, Deny},
		{"stranger cannot update unassigned", Actor{stranger, domain.RoleUser}, nil, ActionUpdate, Deny},
		{"empty assignee never matches", Actor{stranger, domain.RoleUser}, &empty, ActionRead, Deny},
		{"admin reads any", Actor{stranger, domain.RoleAdmin}, nil, ActionRead, Allow},
		{"admin updates any", Actor{stranger, domain.RoleAdmin}, nil, ActionUpdate, Allow},
		{"admin deletes", Actor{stranger, domain.RoleAdmin}, nil, ActionDelete, Allow},
		{"manager reads any", Actor{stranger, domain.RoleManager}, nil, ActionRead, Allow},
		{"manager deletes", Actor{stranger, domain.RoleManager}, nil, ActionDelete, Allow},
		{"unknown role denied", Actor{owner, domain.Role("root")}, nil, ActionRead, Deny},
		{"unknown action denied", Actor{stranger, domain.RoleAdmin}, nil, Action("archive"), Deny},
		{"anonymous denied", Actor{uuid.Nil, domain.RoleAdmin}, nil, ActionRead, Deny},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Authorize(tc.actor, owner, tc.assignee, tc.action)
			assert.Equal(t, tc.want, got, "decision was %s", got)
		})
	}
}

func TestAuthorizeNilAssigneeWithNilActor(t *testing.T) {
	t.Parallel()
	// A nil-UUID actor must not match a task whose assignee is also empty.
	empty := uuid.Nil
	assert.Equal(t, Deny, Authorize(Actor{uuid.Nil, domain.RoleUser}, uuid.New(), &empty, ActionRead))
}

func TestAuthorizeTask(t *testing.T) {
	t.Parallel()
	owner := uuid.New()
	task := &domain.Task{ID: uuid.New(), OwnerID: owner}

	assert.Equal(t, Allow, AuthorizeTask(Actor{owner, domain.RoleUser}, task, ActionRead))
	assert.Equal(t, Deny, AuthorizeTask(Actor{owner, domain.RoleUser}, nil, ActionRead))
}

func TestAuthorizeTeam(t *testing.T) {
	t.Parallel()
	manager := uuid.New()
	member := uuid.New()
	outsider := uuid.New()
	team := &domain.Team{ID: uuid.New(), Name: "Core", ManagerID: manager, MemberIDs: []uuid.UUID{member}}

	assert.Equal(t, Allow, AuthorizeTeamMutation(Actor{manager, domain.RoleManager}))
	assert.Equal(t, Allow, AuthorizeTeamMutation(Actor{outsider, domain.RoleAdmin}))
	assert.Equal(t, Deny, AuthorizeTeamMutation(Actor{member, domain.RoleUser}))

	assert.Equal(t, Allow, AuthorizeTeamRead(Actor{member, domain.RoleUser}, team))
	assert.Equal(t, Allow, AuthorizeTeamRead(Actor{outsider, domain.RoleAdmin}, team))
	assert.Equal(t, Deny, AuthorizeTeamRead(Actor{outsider, domain.RoleUser}, team))
	assert.Equal(t, Deny, AuthorizeTeamRead(Actor{member, domain.RoleUser}, nil))
}

func TestDecisionString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "allow", Allow.String())
	assert.Equal(t, "deny", Deny.String())
	assert.Equal(t, Deny, Decision(0))
}
