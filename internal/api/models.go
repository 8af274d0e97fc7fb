package api

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/domain"
)

// dueDateLayouts are the accepted forms of a task due date, tried in order.
var dueDateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"}

// CreateTaskRequest is the body of POST /api/tasks.
type CreateTaskRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"required,max=5000"`
	Status      string  `json:"status,omitempty"`
	DueDate     string  `json:"dueDate" validate:"required"`
	Priority    string  `json:"priority" validate:"required"`
	AssignedTo  *string `json:"assignedTo,omitempty"`
}

// UpdateTaskRequest is the body of PUT /api/tasks/{id}. It replaces every
// mutable field; a missing or null assignedTo unassigns the task.
type UpdateTaskRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"required,max=5000"`
	Status      string  `json:"status" validate:"required"`
	DueDate     string  `json:"dueDate" validate:"required"`
	Priority    string  `json:"priority" validate:"required"`
	AssignedTo  *string `json:"assignedTo"`
}

// PatchTaskRequest is the body of PATCH /api/tasks/{id}. A null or empty
// assignedTo clears the assignee.
type PatchTaskRequest struct {
	Status     *string        `json:"status,omitempty"`
	AssignedTo OptionalString `json:"assignedTo"`
}

// OptionalString is a nullable JSON string that records whether the field
// was present at all, so an explicit null differs from an omitted field.
type OptionalString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON implements json.Unmarshaler. It is called for null too.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	o.Value = nil
	if string(data) == "null" {
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// OrEmpty returns nil when the field was omitted, and a pointer to the empty
// string when it was null.
func (o OptionalString) OrEmpty() *string {
	if !o.Set {
		return nil
	}
	v := ""
	if o.Value != nil {
		v = *o.Value
	}
	return &v
}

// CreateTeamRequest is the body of POST /api/teams.
type CreateTeamRequest struct {
	Name      string   `json:"name" validate:"required,max=100"`
	ManagerID string   `json:"managerId" validate:"required,uuid"`
	MemberIDs []string `json:"memberIds" validate:"omitempty,dive,uuid"`
}

// UpdateTeamRequest is the body of PUT /api/teams/{id}. Omitted fields are
// left unchanged; memberIds replaces the whole member list.
type UpdateTeamRequest struct {
	Name      *string   `json:"name,omitempty" validate:"omitempty,max=100"`
	ManagerID *string   `json:"managerId,omitempty"`
	MemberIDs *[]string `json:"memberIds,omitempty"`
}

// CreateNotificationRequest is the body of POST /api/notifications. sender
// defaults to the caller.
type CreateNotificationRequest struct {
	Type      string `json:"type" validate:"required"`
	Title     string `json:"title" validate:"required,max=200"`
	Message   string `json:"message" validate:"required,max=2000"`
	Recipient string `json:"recipient" validate:"required,uuid"`
	Sender    string `json:"sender,omitempty" validate:"omitempty,uuid"`
}

// PreferencesRequest is the body of PATCH /api/notifications/preferences.
type PreferencesRequest struct {
	Email *bool `json:"email,omitempty"`
	InApp *bool `json:"inApp,omitempty"`
}

// PreferencesResponse wraps a user's notification preferences.
type PreferencesResponse struct {
	Message     string                         `json:"message,omitempty"`
	Preferences domain.NotificationPreferences `json:"preferences"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// parseDueDate accepts an RFC 3339 timestamp or a bare date.
func parseDueDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, domain.NewValidationError("dueDate", "must be an RFC 3339 timestamp or a YYYY-MM-DD date", nil)
}

// parseOptionalID parses a nullable ID field. Nil and empty strings yield nil.
func parseOptionalID(field string, raw *string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, domain.NewValidationError(field, "has invalid format", domain.ErrInvalidID)
	}
	return &id, nil
}

// parseIDs parses a list of IDs already checked by the validator.
func parseIDs(field string, raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, domain.NewValidationError(field, "has invalid format", domain.ErrInvalidID)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
