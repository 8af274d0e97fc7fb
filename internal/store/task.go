package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/domain"
)

// TaskFilter narrows a task listing. A zero filter matches every task.
type TaskFilter struct {
	// VisibleTo restricts results to tasks owned by or assigned to this user.
	VisibleTo *uuid.UUID
}

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// Create saves a new task.
	// Returns ErrInvalidEntity if the owner or assignee does not exist.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// List returns tasks matching filter, newest first.
	List(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)

	// Update persists every mutable field of task.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task by its ID.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}
