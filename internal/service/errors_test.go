package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/phrazzld/teamtask-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestServiceError_Error(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		message  string
		err      error
		expected string
	}{
		{
			name:     "with underlying error",
			op:       "create task",
			message:  "failed to save task",
			err:      errors.New("database connection failed"),
			expected: "create task failed: failed to save task: database connection failed",
		},
		{
			name:     "without underlying error",
			op:       "delete team",
			message:  "access denied",
			expected: "delete team failed: access denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewServiceError(tt.op, tt.message, tt.err)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestServiceError_Unwrap(t *testing.T) {
	err := NewServiceError("get task", "failed to load task", domain.ErrNotFound)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, domain.ErrNotFound, errors.Unwrap(err))
}

func TestTranslateStoreError(t *testing.T) {
	wrapped := fmt.Errorf("query failed: %w", store.ErrTaskNotFound)
	plain := errors.New("connection reset")

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, translateStoreError(nil))
	})

	t.Run("not found", func(t *testing.T) {
		err := translateStoreError(wrapped)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		assert.True(t, errors.Is(err, store.ErrTaskNotFound))
	})

	t.Run("email conflict", func(t *testing.T) {
		err := translateStoreError(store.ErrEmailExists)
		var conflict *domain.ConflictError
		assert.True(t, errors.As(err, &conflict))
		assert.Equal(t, "email", conflict.Field)
		assert.True(t, errors.Is(err, domain.ErrConflict))
	})

	t.Run("team name conflict", func(t *testing.T) {
		var conflict *domain.ConflictError
		assert.True(t, errors.As(translateStoreError(store.ErrTeamNameExists), &conflict))
		assert.Equal(t, "name", conflict.Field)
	})

	t.Run("invalid reference is a validation error", func(t *testing.T) {
		err := translateStoreError(store.ErrInvalidEntity)
		assert.True(t, errors.Is(err, domain.ErrValidation))
	})

	t.Run("categorized errors pass through", func(t *testing.T) {
		verr := domain.NewValidationError("title", "cannot be empty", domain.ErrEmptyTaskTitle)
		assert.Same(t, verr, translateStoreError(verr))
	})

	t.Run("unknown errors are unchanged", func(t *testing.T) {
		assert.Equal(t, plain, translateStoreError(plain))
	})
}

func TestValidationFrom(t *testing.T) {
	err := validationFrom("title", domain.ErrEmptyTaskTitle)
	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, "title", verr.Field)
	assert.True(t, errors.Is(err, domain.ErrEmptyTaskTitle))
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestForbidden(t *testing.T) {
	err := forbidden("delete task")
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	assert.Contains(t, err.Error(), "delete task")
}
