package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents where a task is in its lifecycle.
type TaskStatus string

// Possible task status values
const (
	TaskStatusToDo       TaskStatus = "ToDo"
	TaskStatusInProgress TaskStatus = "InProgress"
	TaskStatusCompleted  TaskStatus = "Completed"
)

// TaskPriority ranks how urgent a task is.
type TaskPriority string

// Possible task priority values
const (
	TaskPriorityLow    TaskPriority = "Low"
	TaskPriorityMedium TaskPriority = "Medium"
	TaskPriorityHigh   TaskPriority = "High"
)

// Common validation errors for Task
var (
	ErrEmptyTaskID          = errors.New("task ID cannot be empty")
	ErrEmptyTaskOwner       = errors.New("task owner cannot be empty")
	ErrEmptyTaskTitle       = errors.New("task title cannot be empty")
	ErrEmptyTaskDescription = errors.New("task description cannot be empty")
	ErrEmptyTaskDueDate     = errors.New("task due date cannot be empty")
	ErrInvalidTaskStatus    = errors.New("invalid task status")
	ErrInvalidTaskPriority  = errors.New("invalid task priority")
)

// ParseTaskStatus validates a raw status value.
func ParseTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(strings.TrimSpace(s))
	switch status {
	case TaskStatusToDo, TaskStatusInProgress, TaskStatusCompleted:
		return status, nil
	default:
		return "", NewValidationError("status", "must be one of ToDo, InProgress, Completed", ErrInvalidTaskStatus)
	}
}

// ParseTaskPriority validates a raw priority value.
func ParseTaskPriority(s string) (TaskPriority, error) {
	priority := TaskPriority(strings.TrimSpace(s))
	switch priority {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return priority, nil
	default:
		return "", NewValidationError("priority", "must be one of Low, Medium, High", ErrInvalidTaskPriority)
	}
}

// Task is a unit of work owned by the user who created it and optionally
// assigned to another user.
type Task struct {
	ID                  uuid.UUID    `json:"id"`
	OwnerID             uuid.UUID    `json:"ownerId"`
	AssignedTo          *uuid.UUID   `json:"assignedTo,omitempty"`
	Title               string       `json:"title"`
	Description         string       `json:"description"`
	Status              TaskStatus   `json:"status"`
	Priority            TaskPriority `json:"priority"`
	DueDate             time.Time    `json:"dueDate"`
	CompletionTimeHours *float64     `json:"completionTimeHours,omitempty"`
	CreatedAt           time.Time    `json:"createdAt"`
	UpdatedAt           time.Time    `json:"updatedAt"`
}

// NewTask creates a task owned by ownerID in the ToDo status.
// Returns an error if validation fails.
func NewTask(
	ownerID uuid.UUID,
	title, description string,
	priority TaskPriority,
	dueDate time.Time,
) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Status:      TaskStatusToDo,
		Priority:    priority,
		DueDate:     dueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}
	if t.OwnerID == uuid.Nil {
		return ErrEmptyTaskOwner
	}
	if t.Title == "" {
		return ErrEmptyTaskTitle
	}
	if t.Description == "" {
		return ErrEmptyTaskDescription
	}
	if t.DueDate.IsZero() {
		return ErrEmptyTaskDueDate
	}
	if _, err := ParseTaskStatus(string(t.Status)); err != nil {
		return ErrInvalidTaskStatus
	}
	if _, err := ParseTaskPriority(string(t.Priority)); err != nil {
		return ErrInvalidTaskPriority
	}
	return nil
}

// Transition moves the task to status at time now.
//
// Entering Completed from any other status records the hours elapsed since
// creation. A repeated Completed transition keeps the recorded value. The
// status is not validated here; callers parse it with ParseTaskStatus first.
func (t *Task) Transition(status TaskStatus, now time.Time) {
	if status == TaskStatusCompleted && t.Status != TaskStatusCompleted {
		hours := now.Sub(t.CreatedAt).Hours()
		if hours < 0 {
			hours = 0
		}
		t.CompletionTimeHours = &hours
	}
	t.Status = status
	t.UpdatedAt = now
}

// IsAssignedTo reports whether userID is the task's assignee.
// An unassigned task matches nobody.
func (t *Task) IsAssignedTo(userID uuid.UUID) bool {
	return t.AssignedTo != nil && *t.AssignedTo != uuid.Nil && *t.AssignedTo == userID
}

// AssigneeID returns the assignee or uuid.Nil when unassigned.
func (t *Task) AssigneeID() uuid.UUID {
	if t.AssignedTo == nil {
		return uuid.Nil
	}
	return *t.AssignedTo
}
