package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/api/shared"
	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/phrazzld/teamtask-api/internal/platform/logger"
	"github.com/phrazzld/teamtask-api/internal/service"
)

// NotificationHandler serves the /api/notifications endpoints. Every
// operation is scoped to the caller's own notifications and preferences.
type NotificationHandler struct {
	notifications service.NotificationService
	logger        *slog.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifications service.NotificationService, logger *slog.Logger) *NotificationHandler {
	if logger == nil {
		// ALLOW-PANIC: constructor enforcing required dependency
		panic("logger cannot be nil for NotificationHandler")
	}
	return &NotificationHandler{
		notifications: notifications,
		logger:        logger.With(slog.String("component", "notification_handler")),
	}
}

// CreateNotification handles POST /api/notifications. The sender defaults
// to the caller; only admins and managers may send on someone else's
// behalf.
func (h *NotificationHandler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, ok := handleActorFromContext(w, r, log)
	if !ok {
		return
	}

	var req CreateNotificationRequest
	if !parseAndValidateRequest(w, r, &req, log) {
		return
	}

	recipientID, err := uuid.Parse(req.Recipient)
	if err != nil {
		HandleAPIError(w, r, domain.NewValidationError("recipient", "has invalid format", domain.ErrInvalidID), "")
		return
	}

	senderID := actor.ID
	if req.Sender != "" {
		senderID, err = uuid.Parse(req.Sender)
		if err != nil {
			HandleAPIError(w, r, domain.NewValidationError("sender", "has invalid format", domain.ErrInvalidID), "")
			return
		}
		if senderID != actor.ID && !actor.Role.IsElevated() {
			log.Debug("sender impersonation denied", "sender_id", senderID)
			HandleAPIError(w, r, service.NewServiceError("create notification",
				"sender must be the caller", domain.ErrForbidden), "")
			return
		}
	}

	notification, err := h.notifications.Dispatch(r.Context(), service.DispatchInput{
		Type:        req.Type,
		Title:       req.Title,
		Message:     req.Message,
		RecipientID: recipientID,
		SenderID:    senderID,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create notification")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, notification)
}

// ListNotifications handles GET /api/notifications.
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	actor, ok := handleActorFromContext(w, r, h.logger)
	if !ok {
		return
	}

	views, err := h.notifications.List(r.Context(), actor.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list notifications")
		return
	}
	if views == nil {
		views = []*domain.NotificationView{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, views)
}

// MarkRead handles PATCH /api/notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, notificationID, ok := handleActorAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	notification, err := h.notifications.MarkRead(r.Context(), notificationID, actor.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update notification")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, notification)
}

// DeleteNotification handles DELETE /api/notifications/{id}.
func (h *NotificationHandler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	actor, notificationID, ok := handleActorAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	if err := h.notifications.Delete(r.Context(), notificationID, actor.ID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete notification")
		return
	}

	shared.RespondWithMessage(w, r, http.StatusOK, "Notification deleted")
}

// GetPreferences handles GET /api/notifications/preferences.
func (h *NotificationHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	actor, ok := handleActorFromContext(w, r, h.logger)
	if !ok {
		return
	}

	prefs, err := h.notifications.GetPreferences(r.Context(), actor.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load preferences")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, PreferencesResponse{Preferences: prefs})
}

// UpdatePreferences handles PATCH /api/notifications/preferences.
func (h *NotificationHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, ok := handleActorFromContext(w, r, log)
	if !ok {
		return
	}

	var req PreferencesRequest
	if !parseAndValidateRequest(w, r, &req, log) {
		return
	}

	prefs, err := h.notifications.SetPreferences(r.Context(), actor.ID, service.PreferencesPatch{
		Email: req.Email,
		InApp: req.InApp,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update preferences")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, PreferencesResponse{
		Message:     "Notification preferences updated",
		Preferences: prefs,
	})
}
