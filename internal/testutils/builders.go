package testutils

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/stretchr/testify/require"
)

// SeedUser inserts a user with the given role and a unique email.
func SeedUser(t *testing.T, db *MemoryDB, role domain.Role) *domain.User {
	t.Helper()
	id := uuid.New()
	user, err := domain.NewUser(
		fmt.Sprintf("User %s", id.String()[:8]),
		fmt.Sprintf("user-%s@example.com", id.String()[:8]),
		role,
	)
	require.NoError(t, err)
	user.ID = id
	require.NoError(t, db.Users().Create(context.Background(), user))
	return user
}

// SeedTask inserts a ToDo task owned by owner, optionally assigned.
// CreatedAt is shifted back by age so completion hours are predictable.
func SeedTask(t *testing.T, db *MemoryDB, owner uuid.UUID, assignee *uuid.UUID, age time.Duration) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(owner, "Write report", "Quarterly numbers", domain.TaskPriorityMedium,
		time.Now().Add(72*time.Hour))
	require.NoError(t, err)
	task.AssignedTo = assignee
	task.CreatedAt = task.CreatedAt.Add(-age)
	task.UpdatedAt = task.CreatedAt
	require.NoError(t, db.Tasks().Create(context.Background(), task))
	return task
}

// SeedTeam inserts a team and points the manager and members at it.
func SeedTeam(t *testing.T, db *MemoryDB, name string, manager uuid.UUID, members ...uuid.UUID) *domain.Team {
	t.Helper()
	ctx := context.Background()
	team, err := domain.NewTeam(name, manager, members, manager)
	require.NoError(t, err)
	require.NoError(t, db.Teams().Create(ctx, team))
	require.NoError(t, db.Users().SetTeam(ctx, append([]uuid.UUID{manager}, team.MemberIDs...), &team.ID))
	return team
}

// MustUser reads a user back from db.
func MustUser(t *testing.T, db *MemoryDB, id uuid.UUID) *domain.User {
	t.Helper()
	user, err := db.Users().GetByID(context.Background(), id)
	require.NoError(t, err)
	return user
}
