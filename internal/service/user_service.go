package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/phrazzld/teamtask-api/internal/platform/logger"
	"github.com/phrazzld/teamtask-api/internal/store"
)

// UserService provides user administration used by the admin tooling.
type UserService interface {
	// GetUser retrieves a user by their ID
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// GetUserByEmail retrieves a user by their email address
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// CreateUser creates a user with default notification preferences
	CreateUser(ctx context.Context, fullName, email string, role domain.Role) (*domain.User, error)

	// DeleteUser deletes a user by their ID
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	userStore store.UserStore
	tx        TxRunner
	logger    *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(userStore store.UserStore, tx TxRunner, logger *slog.Logger) UserService {
	return &UserServiceImpl{
		userStore: userStore,
		tx:        tx,
		logger:    logger.With("component", "user_service"),
	}
}

// GetUser retrieves a user by their ID
func (s *UserServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		s.logLookupFailure(ctx, err, "user_id", userID)
		return nil, NewServiceError("get user", "failed to retrieve user", translateStoreError(err))
	}
	return user, nil
}

// GetUserByEmail retrieves a user by their email address
func (s *UserServiceImpl) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		s.logLookupFailure(ctx, err, "email", email)
		return nil, NewServiceError("get user by email", "failed to retrieve user", translateStoreError(err))
	}
	return user, nil
}

// CreateUser creates a new user inside a transaction.
func (s *UserServiceImpl) CreateUser(
	ctx context.Context,
	fullName, email string,
	role domain.Role,
) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := domain.NewUser(fullName, email, role)
	if err != nil {
		return nil, validationFrom(userField(err), err)
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.userStore.WithTx(tx).Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			log.Debug("attempted to create user with existing email", "email", user.Email)
		} else {
			log.Error("failed to save user to database", "error", err, "email", user.Email)
		}
		return nil, NewServiceError("create user", "failed to create user", translateStoreError(err))
	}

	log.Info("user created successfully",
		"user_id", user.ID,
		"role", user.Role)
	return user, nil
}

// DeleteUser deletes a user by their ID. Their team back-reference goes with
// the row; tasks they own are removed by the schema's cascade.
func (s *UserServiceImpl) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.userStore.WithTx(tx).Delete(ctx, userID)
	})
	if err != nil {
		s.logLookupFailure(ctx, err, "user_id", userID)
		return NewServiceError("delete user", "failed to delete user", translateStoreError(err))
	}

	log.Info("user deleted successfully", "user_id", userID)
	return nil
}

func (s *UserServiceImpl) logLookupFailure(ctx context.Context, err error, attrs ...any) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	if errors.Is(err, store.ErrUserNotFound) {
		log.Debug("user not found", attrs...)
		return
	}
	log.Error("user operation failed", append(attrs, "error", err)...)
}

func userField(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyFullName):
		return "fullName"
	case errors.Is(err, domain.ErrEmptyEmail), errors.Is(err, domain.ErrInvalidEmail):
		return "email"
	case errors.Is(err, domain.ErrInvalidRole):
		return "role"
	default:
		return ""
	}
}
