package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/access"
	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/phrazzld/teamtask-api/internal/events"
	"github.com/phrazzld/teamtask-api/internal/platform/logger"
	"github.com/phrazzld/teamtask-api/internal/store"
)

// CreateTaskInput carries the fields of a new task.
type CreateTaskInput struct {
	Title       string
	Description string
	Priority    string
	DueDate     time.Time
	// Status defaults to ToDo when empty.
	Status     string
	AssignedTo *uuid.UUID
}

// UpdateTaskInput is a full replacement of a task's mutable fields.
type UpdateTaskInput struct {
	Title       string
	Description string
	Priority    string
	DueDate     time.Time
	Status      string
	// AssignedTo nil unassigns the task.
	AssignedTo *uuid.UUID
}

// PatchTaskInput changes status and/or assignee. An AssignedTo pointing at
// an empty string clears the assignee.
type PatchTaskInput struct {
	Status     *string
	AssignedTo *string
}

// TaskService provides task lifecycle operations. Every method takes the
// authenticated actor and applies the access rules before touching a task.
type TaskService interface {
	CreateTask(ctx context.Context, actor access.Actor, in CreateTaskInput) (*domain.Task, error)
	ListTasks(ctx context.Context, actor access.Actor) ([]*domain.Task, error)
	GetTask(ctx context.Context, actor access.Actor, taskID uuid.UUID) (*domain.Task, error)
	UpdateTask(ctx context.Context, actor access.Actor, taskID uuid.UUID, in UpdateTaskInput) (*domain.Task, error)
	PatchTask(ctx context.Context, actor access.Actor, taskID uuid.UUID, in PatchTaskInput) (*domain.Task, error)
	DeleteTask(ctx context.Context, actor access.Actor, taskID uuid.UUID) error
}

type taskServiceImpl struct {
	tasks   store.TaskStore
	users   store.UserStore
	emitter events.EventEmitter
	now     func() time.Time
	logger  *slog.Logger
}

// NewTaskService creates a TaskService. A nil emitter disables change events.
func NewTaskService(
	tasks store.TaskStore,
	users store.UserStore,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (TaskService, error) {
	if tasks == nil {
		return nil, domain.NewValidationError("tasks", "cannot be nil", domain.ErrValidation)
	}
	if users == nil {
		return nil, domain.NewValidationError("users", "cannot be nil", domain.ErrValidation)
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		tasks:   tasks,
		users:   users,
		emitter: emitter,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logger.With(slog.String("component", "task_service")),
	}, nil
}

// CreateTask implements TaskService.CreateTask. The actor becomes the owner.
func (s *taskServiceImpl) CreateTask(
	ctx context.Context,
	actor access.Actor,
	in CreateTaskInput,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	if actor.ID == uuid.Nil {
		return nil, NewServiceError("create task", "no authenticated actor", domain.ErrUnauthenticated)
	}

	priority, err := domain.ParseTaskPriority(in.Priority)
	if err != nil {
		return nil, err
	}

	task, err := domain.NewTask(actor.ID, in.Title, in.Description, priority, in.DueDate)
	if err != nil {
		return nil, validationFrom(taskField(err), err)
	}

	if strings.TrimSpace(in.Status) != "" {
		status, err := domain.ParseTaskStatus(in.Status)
		if err != nil {
			return nil, err
		}
		task.Transition(status, task.CreatedAt)
	}

	if in.AssignedTo != nil && *in.AssignedTo != uuid.Nil {
		if err := s.requireUser(ctx, *in.AssignedTo); err != nil {
			return nil, err
		}
		assignee := *in.AssignedTo
		task.AssignedTo = &assignee
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		log.Error("failed to create task", "error", err, "owner_id", actor.ID)
		return nil, NewServiceError("create task", "failed to save task", translateStoreError(err))
	}

	log.Info("task created", "task_id", task.ID, "owner_id", task.OwnerID)

	if task.AssignedTo != nil {
		s.emit(ctx, events.TypeTaskAssigned, task, actor, *task.AssignedTo)
	}
	return task, nil
}

// ListTasks implements TaskService.ListTasks.
func (s *taskServiceImpl) ListTasks(ctx context.Context, actor access.Actor) ([]*domain.Task, error) {
	if actor.ID == uuid.Nil || !actor.Role.IsValid() {
		return nil, NewServiceError("list tasks", "no authenticated actor", domain.ErrUnauthenticated)
	}

	filter := store.TaskFilter{}
	if !access.CanSeeAllTasks(actor) {
		id := actor.ID
		filter.VisibleTo = &id
	}

	tasks, err := s.tasks.List(ctx, filter)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list tasks",
			"error", err, "actor_id", actor.ID)
		return nil, NewServiceError("list tasks", "failed to load tasks", translateStoreError(err))
	}
	return tasks, nil
}

// GetTask implements TaskService.GetTask. A missing task is reported before
// the access decision.
func (s *taskServiceImpl) GetTask(ctx context.Context, actor access.Actor, taskID uuid.UUID) (*domain.Task, error) {
	return s.loadAuthorized(ctx, actor, taskID, access.ActionRead, "get task")
}

// UpdateTask implements TaskService.UpdateTask.
func (s *taskServiceImpl) UpdateTask(
	ctx context.Context,
	actor access.Actor,
	taskID uuid.UUID,
	in UpdateTaskInput,
) (*domain.Task, error) {
	const op = "update task"

	task, err := s.loadAuthorized(ctx, actor, taskID, access.ActionUpdate, op)
	if err != nil {
		return nil, err
	}
	before := *task

	priority, err := domain.ParseTaskPriority(in.Priority)
	if err != nil {
		return nil, err
	}
	status, err := domain.ParseTaskStatus(in.Status)
	if err != nil {
		return nil, err
	}
	if err := s.resolveAssignee(ctx, in.AssignedTo); err != nil {
		return nil, err
	}

	task.Title = strings.TrimSpace(in.Title)
	task.Description = strings.TrimSpace(in.Description)
	task.Priority = priority
	task.DueDate = in.DueDate
	task.AssignedTo = normalizeAssignee(in.AssignedTo)
	if err := task.Validate(); err != nil {
		return nil, validationFrom(taskField(err), err)
	}
	task.Transition(status, s.now())

	return s.save(ctx, op, actor, &before, task)
}

// PatchTask implements TaskService.PatchTask.
func (s *taskServiceImpl) PatchTask(
	ctx context.Context,
	actor access.Actor,
	taskID uuid.UUID,
	in PatchTaskInput,
) (*domain.Task, error) {
	const op = "patch task"

	if in.Status == nil && in.AssignedTo == nil {
		return nil, domain.NewValidationError("", ErrEmptyPatch.Error(), ErrEmptyPatch)
	}

	var status domain.TaskStatus
	if in.Status != nil {
		parsed, err := domain.ParseTaskStatus(*in.Status)
		if err != nil {
			return nil, err
		}
		status = parsed
	}

	var assignee *uuid.UUID
	if in.AssignedTo != nil && strings.TrimSpace(*in.AssignedTo) != "" {
		id, err := uuid.Parse(strings.TrimSpace(*in.AssignedTo))
		if err != nil {
			return nil, domain.NewValidationError("assignedTo", "must be a valid user id", domain.ErrInvalidID)
		}
		assignee = &id
	}

	task, err := s.loadAuthorized(ctx, actor, taskID, access.ActionUpdate, op)
	if err != nil {
		return nil, err
	}
	before := *task

	now := s.now()
	if in.AssignedTo != nil {
		if err := s.resolveAssignee(ctx, assignee); err != nil {
			return nil, err
		}
		task.AssignedTo = normalizeAssignee(assignee)
		task.UpdatedAt = now
	}
	if in.Status != nil {
		task.Transition(status, now)
	}

	return s.save(ctx, op, actor, &before, task)
}

// DeleteTask implements TaskService.DeleteTask.
func (s *taskServiceImpl) DeleteTask(ctx context.Context, actor access.Actor, taskID uuid.UUID) error {
	const op = "delete task"
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := s.loadAuthorized(ctx, actor, taskID, access.ActionDelete, op)
	if err != nil {
		return err
	}

	if err := s.tasks.Delete(ctx, task.ID); err != nil {
		log.Error("failed to delete task", "error", err, "task_id", task.ID)
		return NewServiceError(op, "failed to delete task", translateStoreError(err))
	}

	log.Info("task deleted", "task_id", task.ID, "actor_id", actor.ID)
	s.emit(ctx, events.TypeTaskDeleted, task, actor, task.OwnerID, task.AssigneeID())
	return nil
}

// loadAuthorized fetches a task and applies the access decision for action.
func (s *taskServiceImpl) loadAuthorized(
	ctx context.Context,
	actor access.Actor,
	taskID uuid.UUID,
	action access.Action,
	op string,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Debug("task not found", "task_id", taskID)
		} else {
			log.Error("failed to load task", "error", err, "task_id", taskID)
		}
		return nil, NewServiceError(op, "failed to load task", translateStoreError(err))
	}

	if access.AuthorizeTask(actor, task, action) != access.Allow {
		log.Debug("task access denied",
			"task_id", taskID,
			"actor_id", actor.ID,
			"actor_role", actor.Role,
			"action", action)
		return nil, forbidden(op)
	}
	return task, nil
}

// save persists task and emits the change events that follow from the
// difference between before and task.
func (s *taskServiceImpl) save(
	ctx context.Context,
	op string,
	actor access.Actor,
	before, task *domain.Task,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.tasks.Update(ctx, task); err != nil {
		log.Error("failed to update task", "error", err, "task_id", task.ID)
		return nil, NewServiceError(op, "failed to save task", translateStoreError(err))
	}
	log.Info("task updated", "task_id", task.ID, "status", task.Status, "actor_id", actor.ID)

	notified := false
	if task.AssignedTo != nil && task.AssigneeID() != before.AssigneeID() {
		s.emit(ctx, events.TypeTaskAssigned, task, actor, task.AssigneeID())
		notified = true
	}
	if task.Status == domain.TaskStatusCompleted && before.Status != domain.TaskStatusCompleted {
		s.emit(ctx, events.TypeTaskCompleted, task, actor, task.OwnerID)
		notified = true
	}
	if !notified {
		s.emit(ctx, events.TypeTaskUpdated, task, actor, task.OwnerID, task.AssigneeID())
	}

	return task, nil
}

func (s *taskServiceImpl) resolveAssignee(ctx context.Context, assignee *uuid.UUID) error {
	if assignee == nil || *assignee == uuid.Nil {
		return nil
	}
	return s.requireUser(ctx, *assignee)
}

func (s *taskServiceImpl) requireUser(ctx context.Context, id uuid.UUID) error {
	if _, err := s.users.GetByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NewValidationError("assignedTo", "must reference an existing user", ErrUnknownUser)
		}
		return fmt.Errorf("failed to resolve assignee: %w", err)
	}
	return nil
}

// emit publishes a task change. Failures are logged; the write has already
// happened.
func (s *taskServiceImpl) emit(
	ctx context.Context,
	eventType string,
	task *domain.Task,
	actor access.Actor,
	recipients ...uuid.UUID,
) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := events.NewTaskChangeEvent(eventType, events.TaskChange{
		TaskID:     task.ID,
		TaskTitle:  task.Title,
		ActorID:    actor.ID,
		Recipients: domain.UniqueIDs(recipients),
	})
	if err != nil {
		log.Error("failed to build task event", "error", err, "event_type", eventType)
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Warn("task event handlers reported errors",
			"error", err,
			"event_type", eventType,
			"task_id", task.ID)
	}
}

func normalizeAssignee(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	v := *id
	return &v
}

// taskField names the input field a domain task error refers to.
func taskField(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyTaskTitle):
		return "title"
	case errors.Is(err, domain.ErrEmptyTaskDescription):
		return "description"
	case errors.Is(err, domain.ErrEmptyTaskDueDate):
		return "dueDate"
	case errors.Is(err, domain.ErrInvalidTaskPriority):
		return "priority"
	case errors.Is(err, domain.ErrInvalidTaskStatus):
		return "status"
	case errors.Is(err, domain.ErrEmptyTaskOwner):
		return "owner"
	default:
		return ""
	}
}
