package domain

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common validation errors
var (
	ErrEmptyUserID   = errors.New("user ID cannot be empty")
	ErrInvalidEmail  = errors.New("invalid email format")
	ErrEmptyEmail    = errors.New("email cannot be empty")
	ErrEmptyFullName = errors.New("full name cannot be empty")
	ErrInvalidRole   = errors.New("invalid role")
)

// Role is the coarse permission level of a user.
type Role string

// Possible role values
const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleManager, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsElevated reports whether r may act on resources it does not own.
func (r Role) IsElevated() bool {
	return r == RoleAdmin || r == RoleManager
}

// ParseRole converts a raw string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", NewValidationError("role", "must be one of user, manager, admin", ErrInvalidRole)
	}
	return r, nil
}

// NotificationPreferences controls which delivery channels a user receives
// notifications on. Preferences gate delivery only, never persistence.
type NotificationPreferences struct {
	Email bool `json:"email"`
	InApp bool `json:"inApp"`
}

// DefaultNotificationPreferences returns the preferences used when a user has
// never set any: email off, in-app on.
func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{Email: false, InApp: true}
}

// User represents a registered user of the application.
type User struct {
	ID                      uuid.UUID               `json:"id"`
	FullName                string                  `json:"fullName"`
	Email                   string                  `json:"email"`
	Role                    Role                    `json:"role"`
	TeamID                  *uuid.UUID              `json:"teamId,omitempty"`
	NotificationPreferences NotificationPreferences `json:"notificationPreferences"`
	CreatedAt               time.Time               `json:"createdAt"`
	UpdatedAt               time.Time               `json:"updatedAt"`
}

// NewUser creates a new User with default notification preferences.
// Returns an error if validation fails.
func NewUser(fullName, email string, role Role) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:                      uuid.New(),
		FullName:                strings.TrimSpace(fullName),
		Email:                   strings.ToLower(strings.TrimSpace(email)),
		Role:                    role,
		NotificationPreferences: DefaultNotificationPreferences(),
		CreatedAt:               now,
		UpdatedAt:               now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}
	if u.FullName == "" {
		return ErrEmptyFullName
	}
	if u.Email == "" {
		return ErrEmptyEmail
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return ErrInvalidEmail
	}
	if !u.Role.IsValid() {
		return ErrInvalidRole
	}
	return nil
}

// InTeam reports whether the user's back-reference points at teamID.
func (u *User) InTeam(teamID uuid.UUID) bool {
	return u.TeamID != nil && *u.TeamID == teamID
}

// UserSummary is the public identity of a user shown next to records they
// created, for example the sender of a notification.
type UserSummary struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"fullName"`
	Email    string    `json:"email"`
}
