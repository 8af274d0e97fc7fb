// Package access decides whether an actor may perform an action on a task or
// team. It holds the fixed rule set: owners and assignees act on their own
// tasks, admins and managers act on everything, and only admins and managers
// delete tasks or mutate teams.
//
// The functions here are pure. Callers load the resource first so that a
// missing resource is reported as not found before any decision is made.
package access

import (
	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/domain"
)

// Action is an operation requested on a resource.
type Action string

// Supported actions
const (
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Decision is the outcome of an authorization check.
type Decision int

// Possible decisions. The zero value denies.
const (
	Deny Decision = iota
	Allow
)

// String implements fmt.Stringer.
func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID   uuid.UUID
	Role domain.Role
}

// Authorize decides whether actor may perform action on a task owned by
// ownerID and assigned to assigneeID. A nil or empty assignee matches nobody.
func Authorize(actor Actor, ownerID uuid.UUID, assigneeID *uuid.UUID, action Action) Decision {
	if actor.ID == uuid.Nil || !actor.Role.IsValid() {
		return Deny
	}

	switch action {
	case ActionRead, ActionUpdate:
		if actor.Role.IsElevated() {
			return Allow
		}
		if actor.ID == ownerID {
			return Allow
		}
		if assigneeID != nil && *assigneeID != uuid.Nil && *assigneeID == actor.ID {
			return Allow
		}
		return Deny
	case ActionDelete:
		if actor.Role.IsElevated() {
			return Allow
		}
		return Deny
	default:
		return Deny
	}
}

// AuthorizeTask is Authorize applied to a loaded task.
func AuthorizeTask(actor Actor, task *domain.Task, action Action) Decision {
	if task == nil {
		return Deny
	}
	return Authorize(actor, task.OwnerID, task.AssignedTo, action)
}

// AuthorizeTeamMutation decides whether actor may create, update or delete
// teams.
func AuthorizeTeamMutation(actor Actor) Decision {
	if actor.ID != uuid.Nil && actor.Role.IsElevated() {
		return Allow
	}
	return Deny
}

// AuthorizeTeamRead decides whether actor may view team. Admins and managers
// see every team; anyone else only a team they manage or belong to.
func AuthorizeTeamRead(actor Actor, team *domain.Team) Decision {
	if team == nil || actor.ID == uuid.Nil || !actor.Role.IsValid() {
		return Deny
	}
	if actor.Role.IsElevated() || team.Includes(actor.ID) {
		return Allow
	}
	return Deny
}

// CanSeeAllTasks reports whether actor's task list is unfiltered.
func CanSeeAllTasks(actor Actor) bool {
	return actor.Role.IsElevated()
}
