package api_test

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/phrazzld/teamtask-api/internal/realtime"
	"github.com/phrazzld/teamtask-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notificationBody(recipient *domain.User) map[string]interface{} {
	return map[string]interface{}{
		"type":      "task_updated",
		"title":     "Heads up",
		"message":   "The report moved to Friday",
		"recipient": recipient.ID.String(),
	}
}

func TestCreateNotification(t *testing.T) {
	h := newHarness(t)
	sender := h.user(t, domain.RoleUser)
	recipient := h.user(t, domain.RoleUser)

	rr := h.do(t, http.MethodPost, "/api/notifications", sender, notificationBody(recipient))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	n := decode[domain.Notification](t, rr)
	assert.Equal(t, recipient.ID, n.RecipientID)
	assert.Equal(t, sender.ID, n.SenderID)
	assert.Equal(t, domain.NotificationTaskUpdated, n.Type)
	assert.False(t, n.Read)

	events := h.publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, recipient.ID, events[0].UserID)
	assert.Equal(t, realtime.EventNotification, events[0].Event)
	assert.Equal(t, []string{service.JobRealtimeDelivery}, h.jobs.Names())
	assert.Empty(t, h.sender.Sent(), "email is off by default")
}

func TestCreateNotificationSender(t *testing.T) {
	h := newHarness(t)
	plain := h.user(t, domain.RoleUser)
	other := h.user(t, domain.RoleUser)
	manager := h.user(t, domain.RoleManager)
	recipient := h.user(t, domain.RoleUser)

	body := notificationBody(recipient)
	body["sender"] = other.ID.String()

	rr := h.do(t, http.MethodPost, "/api/notifications", plain, body)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, h.publisher.Events())

	rr = h.do(t, http.MethodPost, "/api/notifications", manager, body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, other.ID, decode[domain.Notification](t, rr).SenderID)
}

func TestCreateNotificationValidation(t *testing.T) {
	h := newHarness(t)
	sender := h.user(t, domain.RoleUser)
	recipient := h.user(t, domain.RoleUser)

	badType := notificationBody(recipient)
	badType["type"] = "reminder"
	rr := h.do(t, http.MethodPost, "/api/notifications", sender, badType)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid type: is not a known notification type", errorBody(t, rr).Error)

	badRecipient := notificationBody(recipient)
	badRecipient["recipient"] = "someone"
	rr = h.do(t, http.MethodPost, "/api/notifications", sender, badRecipient)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid recipient: must be a valid ID", errorBody(t, rr).Error)

	missingTitle := notificationBody(recipient)
	delete(missingTitle, "title")
	rr = h.do(t, http.MethodPost, "/api/notifications", sender, missingTitle)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid title: required field", errorBody(t, rr).Error)
}

func TestNotificationEmailDelivery(t *testing.T) {
	h := newHarness(t)
	sender := h.user(t, domain.RoleUser)
	recipient := h.user(t, domain.RoleUser)

	rr := h.do(t, http.MethodPatch, "/api/notifications/preferences", recipient, map[string]bool{"email": true})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = h.do(t, http.MethodPost, "/api/notifications", sender, notificationBody(recipient))
	require.Equal(t, http.StatusCreated, rr.Code)

	sent := h.sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, recipient.Email, sent[0].To)
	assert.Equal(t, "New Notification: Heads up", sent[0].Subject)
	assert.Len(t, h.publisher.Events(), 1)
	assert.Empty(t, h.jobs.Failures())
}

func TestListAndMarkRead(t *testing.T) {
	h := newHarness(t)
	sender := h.user(t, domain.RoleUser)
	recipient := h.user(t, domain.RoleUser)

	assert.JSONEq(t, `[]`, h.do(t, http.MethodGet, "/api/notifications", recipient, nil).Body.String())

	created := decode[domain.Notification](t,
		h.do(t, http.MethodPost, "/api/notifications", sender, notificationBody(recipient)))
	path := "/api/notifications/" + created.ID.String() + "/read"

	list := decode[[]domain.NotificationView](t, h.do(t, http.MethodGet, "/api/notifications", recipient, nil))
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Sender)
	assert.Equal(t, sender.FullName, list[0].Sender.FullName)
	assert.Empty(t, decode[[]domain.NotificationView](t, h.do(t, http.MethodGet, "/api/notifications", sender, nil)))

	rr := h.do(t, http.MethodPatch, path, sender, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code, "other users' notifications look missing")
	assert.Equal(t, "Notification not found", errorBody(t, rr).Error)

	rr = h.do(t, http.MethodPatch, path, recipient, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[domain.Notification](t, rr).Read)

	rr = h.do(t, http.MethodPatch, "/api/notifications/"+uuid.NewString()+"/read", recipient, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDeleteNotification(t *testing.T) {
	h := newHarness(t)
	sender := h.user(t, domain.RoleUser)
	recipient := h.user(t, domain.RoleUser)

	created := decode[domain.Notification](t,
		h.do(t, http.MethodPost, "/api/notifications", sender, notificationBody(recipient)))
	path := "/api/notifications/" + created.ID.String()

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodDelete, path, sender, nil).Code)

	rr := h.do(t, http.MethodDelete, path, recipient, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"Notification deleted"}`, rr.Body.String())

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodDelete, path, recipient, nil).Code)
}

func TestNotificationPreferences(t *testing.T) {
	h := newHarness(t)
	user := h.user(t, domain.RoleUser)
	const path = "/api/notifications/preferences"

	rr := h.do(t, http.MethodGet, path, user, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"preferences":{"email":false,"inApp":true}}`, rr.Body.String())

	rr = h.do(t, http.MethodPatch, path, user, map[string]string{"sms": "yes"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "No valid preference fields provided", errorBody(t, rr).Error)

	rr = h.do(t, http.MethodPatch, path, user, map[string]bool{"inApp": false})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t,
		`{"message":"Notification preferences updated","preferences":{"email":false,"inApp":false}}`,
		rr.Body.String())

	rr = h.do(t, http.MethodGet, path, user, nil)
	assert.JSONEq(t, `{"preferences":{"email":false,"inApp":false}}`, rr.Body.String())
}

func TestPreferencesGateDeliveryNotPersistence(t *testing.T) {
	h := newHarness(t)
	sender := h.user(t, domain.RoleUser)
	recipient := h.user(t, domain.RoleUser)

	rr := h.do(t, http.MethodPatch, "/api/notifications/preferences", recipient, map[string]bool{"inApp": false})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = h.do(t, http.MethodPost, "/api/notifications", sender, notificationBody(recipient))
	require.Equal(t, http.StatusCreated, rr.Code)

	assert.Empty(t, h.publisher.Events())
	assert.Empty(t, h.sender.Sent())
	assert.Len(t, decode[[]domain.NotificationView](t, h.do(t, http.MethodGet, "/api/notifications", recipient, nil)), 1)
}
