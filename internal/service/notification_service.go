package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/phrazzld/teamtask-api/internal/platform/logger"
	"github.com/phrazzld/teamtask-api/internal/platform/mailer"
	"github.com/phrazzld/teamtask-api/internal/store"
	"github.com/phrazzld/teamtask-api/internal/worker"
)

// ListLimit caps how many notifications List returns.
const ListLimit = 50

// DispatchInput carries the five fields of a new notification.
type DispatchInput struct {
	Type        string
	Title       string
	Message     string
	RecipientID uuid.UUID
	SenderID    uuid.UUID
}

// PreferencesPatch changes one or both delivery channels.
type PreferencesPatch struct {
	Email *bool
	InApp *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p PreferencesPatch) IsEmpty() bool {
	return p.Email == nil && p.InApp == nil
}

// NotificationService persists notifications and delivers them over the
// real-time and email channels. Delivery is best effort: it happens in the
// background after the record is stored and its failures never reach the
// caller.
type NotificationService interface {
	Dispatch(ctx context.Context, in DispatchInput) (*domain.Notification, error)
	List(ctx context.Context, actorID uuid.UUID) ([]*domain.NotificationView, error)
	MarkRead(ctx context.Context, notificationID, actorID uuid.UUID) (*domain.Notification, error)
	Delete(ctx context.Context, notificationID, actorID uuid.UUID) error
	GetPreferences(ctx context.Context, actorID uuid.UUID) (domain.NotificationPreferences, error)
	SetPreferences(ctx context.Context, actorID uuid.UUID, patch PreferencesPatch) (domain.NotificationPreferences, error)
}

// NotificationDeps groups the collaborators of the notification service.
type NotificationDeps struct {
	Notifications store.NotificationStore
	Users         store.UserStore
	Preferences   PreferenceStore
	Realtime      RealtimePublisher
	Email         mailer.Sender
	Jobs          JobSubmitter
}

type notificationServiceImpl struct {
	deps   NotificationDeps
	logger *slog.Logger
}

// NewNotificationService creates a NotificationService.
func NewNotificationService(deps NotificationDeps, logger *slog.Logger) (NotificationService, error) {
	switch {
	case deps.Notifications == nil:
		return nil, domain.NewValidationError("notifications", "cannot be nil", domain.ErrValidation)
	case deps.Users == nil:
		return nil, domain.NewValidationError("users", "cannot be nil", domain.ErrValidation)
	case deps.Realtime == nil:
		return nil, domain.NewValidationError("realtime", "cannot be nil", domain.ErrValidation)
	case deps.Email == nil:
		return nil, domain.NewValidationError("email", "cannot be nil", domain.ErrValidation)
	case deps.Jobs == nil:
		return nil, domain.NewValidationError("jobs", "cannot be nil", domain.ErrValidation)
	}
	if deps.Preferences == nil {
		deps.Preferences = NewUserPreferenceStore(deps.Users)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &notificationServiceImpl{
		deps:   deps,
		logger: logger.With(slog.String("component", "notification_service")),
	}, nil
}

// Dispatch implements NotificationService.Dispatch.
func (s *notificationServiceImpl) Dispatch(ctx context.Context, in DispatchInput) (*domain.Notification, error) {
	const op = "dispatch notification"
	log := logger.FromContextOrDefault(ctx, s.logger)

	n, err := domain.NewNotification(
		domain.NotificationType(strings.TrimSpace(in.Type)),
		in.Title,
		in.Message,
		in.RecipientID,
		in.SenderID,
	)
	if err != nil {
		return nil, err
	}

	if err := s.deps.Notifications.Create(ctx, n); err != nil {
		log.Error("failed to persist notification",
			"error", err,
			"recipient_id", n.RecipientID,
			"type", n.Type)
		return nil, NewServiceError(op, "failed to save notification", translateStoreError(err))
	}

	recipient, err := s.deps.Preferences.Lookup(ctx, n.RecipientID)
	if err != nil {
		log.Warn("could not resolve recipient preferences, using defaults",
			"error", err,
			"recipient_id", n.RecipientID)
		recipient = Recipient{ID: n.RecipientID, Preferences: domain.DefaultNotificationPreferences()}
	}

	if recipient.Preferences.InApp {
		s.enqueue(ctx, &realtimeJob{publisher: s.deps.Realtime, notification: n}, n)
	}
	if recipient.Preferences.Email {
		if recipient.Email == "" {
			log.Warn("email delivery enabled but recipient has no address", "recipient_id", n.RecipientID)
		} else {
			s.enqueue(ctx, &emailJob{
				sender:  s.deps.Email,
				message: NotificationEmail(recipient, n),
				id:      n.ID,
			}, n)
		}
	}

	log.Info("notification dispatched",
		"notification_id", n.ID,
		"recipient_id", n.RecipientID,
		"type", n.Type,
		"in_app", recipient.Preferences.InApp,
		"email", recipient.Preferences.Email)
	return n, nil
}

// enqueue submits a delivery job, logging instead of failing when the pool
// refuses it.
func (s *notificationServiceImpl) enqueue(ctx context.Context, job worker.Job, n *domain.Notification) {
	if err := s.deps.Jobs.Submit(job); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to queue notification delivery",
			"error", err,
			"job", job.Name(),
			"notification_id", n.ID)
	}
}

// List implements NotificationService.List.
func (s *notificationServiceImpl) List(ctx context.Context, actorID uuid.UUID) ([]*domain.NotificationView, error) {
	views, err := s.deps.Notifications.ListForRecipient(ctx, actorID, ListLimit)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list notifications",
			"error", err, "recipient_id", actorID)
		return nil, NewServiceError("list notifications", "failed to load notifications", translateStoreError(err))
	}
	return views, nil
}

// MarkRead implements NotificationService.MarkRead. Notifications of other
// users are reported as not found.
func (s *notificationServiceImpl) MarkRead(
	ctx context.Context,
	notificationID, actorID uuid.UUID,
) (*domain.Notification, error) {
	n, err := s.deps.Notifications.MarkRead(ctx, notificationID, actorID)
	if err != nil {
		s.logRecipientFailure(ctx, "mark notification read", err, notificationID, actorID)
		return nil, NewServiceError("mark notification read", "notification unavailable", translateStoreError(err))
	}
	return n, nil
}

// Delete implements NotificationService.Delete. Notifications of other users
// are reported as not found.
func (s *notificationServiceImpl) Delete(ctx context.Context, notificationID, actorID uuid.UUID) error {
	if err := s.deps.Notifications.Delete(ctx, notificationID, actorID); err != nil {
		s.logRecipientFailure(ctx, "delete notification", err, notificationID, actorID)
		return NewServiceError("delete notification", "notification unavailable", translateStoreError(err))
	}
	return nil
}

// GetPreferences implements NotificationService.GetPreferences.
func (s *notificationServiceImpl) GetPreferences(
	ctx context.Context,
	actorID uuid.UUID,
) (domain.NotificationPreferences, error) {
	user, err := s.deps.Users.GetByID(ctx, actorID)
	if err != nil {
		return domain.NotificationPreferences{},
			NewServiceError("get preferences", "failed to load user", translateStoreError(err))
	}
	return user.NotificationPreferences, nil
}

// SetPreferences implements NotificationService.SetPreferences.
func (s *notificationServiceImpl) SetPreferences(
	ctx context.Context,
	actorID uuid.UUID,
	patch PreferencesPatch,
) (domain.NotificationPreferences, error) {
	const op = "set preferences"
	log := logger.FromContextOrDefault(ctx, s.logger)

	if patch.IsEmpty() {
		return domain.NotificationPreferences{},
			domain.NewValidationError("", "no valid preference fields provided", ErrEmptyPatch)
	}

	user, err := s.deps.Users.GetByID(ctx, actorID)
	if err != nil {
		return domain.NotificationPreferences{}, NewServiceError(op, "failed to load user", translateStoreError(err))
	}

	prefs := user.NotificationPreferences
	if patch.Email != nil {
		prefs.Email = *patch.Email
	}
	if patch.InApp != nil {
		prefs.InApp = *patch.InApp
	}

	if err := s.deps.Users.UpdatePreferences(ctx, actorID, prefs); err != nil {
		log.Error("failed to update preferences", "error", err, "user_id", actorID)
		return domain.NotificationPreferences{}, NewServiceError(op, "failed to save preferences", translateStoreError(err))
	}

	log.Info("notification preferences updated",
		"user_id", actorID,
		"email", prefs.Email,
		"in_app", prefs.InApp)
	return prefs, nil
}

func (s *notificationServiceImpl) logRecipientFailure(
	ctx context.Context,
	op string,
	err error,
	notificationID, actorID uuid.UUID,
) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	if errors.Is(err, store.ErrNotFound) {
		log.Debug("notification not available to actor",
			"operation", op,
			"notification_id", notificationID,
			"actor_id", actorID)
		return
	}
	log.Error("notification operation failed",
		"error", err,
		"operation", op,
		"notification_id", notificationID)
}
