package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/phrazzld/teamtask-api/internal/mocks"
	"github.com/phrazzld/teamtask-api/internal/realtime"
	"github.com/phrazzld/teamtask-api/internal/service"
	"github.com/phrazzld/teamtask-api/internal/testutils"
	"github.com/phrazzld/teamtask-api/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jobFailure struct {
	job string
	err error
}

type notificationFixture struct {
	db        *testutils.MemoryDB
	svc       service.NotificationService
	pool      *worker.Pool
	publisher *mocks.MockPublisher
	sender    *mocks.MockSender
	logs      *testutils.TestSlogHandler
	sender0   *domain.User
	recipient *domain.User

	mu       sync.Mutex
	failures []jobFailure
}

func newNotificationFixture(t *testing.T) *notificationFixture {
	t.Helper()
	db := testutils.NewMemoryDB()
	log, logs := testutils.NewTestLogger()

	f := &notificationFixture{
		db:        db,
		publisher: &mocks.MockPublisher{},
		sender:    &mocks.MockSender{},
		logs:      logs,
		sender0:   testutils.SeedUser(t, db, domain.RoleManager),
		recipient: testutils.SeedUser(t, db, domain.RoleUser),
	}

	f.pool = worker.NewPool(worker.Config{Workers: 2, QueueSize: 16, JobTimeout: time.Second}, log)
	f.pool.SetErrorHandler(func(job worker.Job, err error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.failures = append(f.failures, jobFailure{job: job.Name(), err: err})
	})
	f.pool.Start()
	t.Cleanup(func() { _ = f.pool.Stop(context.Background()) })

	svc, err := service.NewNotificationService(service.NotificationDeps{
		Notifications: db.Notifications(),
		Users:         db.Users(),
		Realtime:      f.publisher,
		Email:         f.sender,
		Jobs:          f.pool,
	}, log)
	require.NoError(t, err)
	f.svc = svc
	return f
}

// drain waits until every queued delivery has run.
func (f *notificationFixture) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.pool.Stop(ctx))
}

func (f *notificationFixture) jobFailures() []jobFailure {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]jobFailure(nil), f.failures...)
}

func (f *notificationFixture) setPrefs(t *testing.T, email, inApp bool) {
	t.Helper()
	require.NoError(t, f.db.Users().UpdatePreferences(context.Background(), f.recipient.ID,
		domain.NotificationPreferences{Email: email, InApp: inApp}))
}

func (f *notificationFixture) input() service.DispatchInput {
	return service.DispatchInput{
		Type:        string(domain.NotificationTaskAssigned),
		Title:       "New task assigned",
		Message:     `You have been assigned "Write report"`,
		RecipientID: f.recipient.ID,
		SenderID:    f.sender0.ID,
	}
}

func TestNewNotificationService_RequiresDependencies(t *testing.T) {
	db := testutils.NewMemoryDB()
	log, _ := testutils.NewTestLogger()
	full := service.NotificationDeps{
		Notifications: db.Notifications(),
		Users:         db.Users(),
		Realtime:      &mocks.MockPublisher{},
		Email:         &mocks.MockSender{},
		Jobs:          worker.NewPool(worker.DefaultConfig(), log),
	}

	_, err := service.NewNotificationService(full, nil)
	require.NoError(t, err)

	missing := []func(*service.NotificationDeps){
		func(d *service.NotificationDeps) { d.Notifications = nil },
		func(d *service.NotificationDeps) { d.Users = nil },
		func(d *service.NotificationDeps) { d.Realtime = nil },
		func(d *service.NotificationDeps) { d.Email = nil },
		func(d *service.NotificationDeps) { d.Jobs = nil },
	}
	for i, drop := range missing {
		deps := full
		drop(&deps)
		_, err := service.NewNotificationService(deps, nil)
		assert.ErrorIs(t, err, domain.ErrValidation, "case %d", i)
	}
}

func TestNotificationService_DispatchHonoursPreferences(t *testing.T) {
	tests := []struct {
		name      string
		email     bool
		inApp     bool
		wantPush  int
		wantEmail int
	}{
		{"defaults: in-app only", false, true, 1, 0},
		{"both channels", true, true, 1, 1},
		{"email only", true, false, 0, 1},
		{"no channel", false, false, 0, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newNotificationFixture(t)
			f.setPrefs(t, tc.email, tc.inApp)

			n, err := f.svc.Dispatch(context.Background(), f.input())
			require.NoError(t, err)
			f.drain(t)

			assert.False(t, n.Read)
			assert.Equal(t, f.recipient.ID, n.RecipientID)
			assert.Equal(t, f.sender0.ID, n.SenderID)

			// Persisted whatever the preferences.
			views, err := f.db.Notifications().ListForRecipient(context.Background(), f.recipient.ID, 10)
			require.NoError(t, err)
			require.Len(t, views, 1)
			assert.Equal(t, n.ID, views[0].ID)

			pushes := f.publisher.Events()
			require.Len(t, pushes, tc.wantPush)
			if tc.wantPush > 0 {
				assert.Equal(t, f.recipient.ID, pushes[0].UserID)
				assert.Equal(t, realtime.EventNotification, pushes[0].Event)
				pushed, ok := pushes[0].Payload.(*domain.Notification)
				require.True(t, ok, "payload is %T", pushes[0].Payload)
				assert.Equal(t, n.ID, pushed.ID)
			}

			sent := f.sender.Sent()
			require.Len(t, sent, tc.wantEmail)
			if tc.wantEmail > 0 {
				assert.Equal(t, f.recipient.Email, sent[0].To)
				assert.Equal(t, "New Notification: New task assigned", sent[0].Subject)
				assert.Contains(t, sent[0].Text, f.recipient.FullName)
				assert.Contains(t, sent[0].Text, "Type: task_assigned")
			}
			assert.Empty(t, f.jobFailures())
		})
	}
}

func TestNotificationService_DispatchSurvivesTransportFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("push and email errors stay in the background", func(t *testing.T) {
		f := newNotificationFixture(t)
		f.setPrefs(t, true, true)
		f.publisher.Err = errors.New("socket write failed")
		f.sender.Err = errors.New("smtp: 421 service not available")

		n, err := f.svc.Dispatch(ctx, f.input())
		require.NoError(t, err)
		require.NotNil(t, n)
		f.drain(t)

		failures := f.jobFailures()
		require.Len(t, failures, 2)
		names := []string{failures[0].job, failures[1].job}
		assert.ElementsMatch(t, []string{service.JobRealtimeDelivery, service.JobEmailDelivery}, names)
	})

	t.Run("panicking transport does not stop the other channel", func(t *testing.T) {
		f := newNotificationFixture(t)
		f.setPrefs(t, true, true)
		f.publisher.EmitFn = func(uuid.UUID, string, interface{}) error {
			panic("nil connection")
		}

		_, err := f.svc.Dispatch(ctx, f.input())
		require.NoError(t, err)
		f.drain(t)

		assert.Len(t, f.sender.Sent(), 1)
		failures := f.jobFailures()
		require.Len(t, failures, 1)
		assert.Equal(t, service.JobRealtimeDelivery, failures[0].job)
		assert.ErrorIs(t, failures[0].err, worker.ErrPanic)
	})

	t.Run("offline recipient is not a failure", func(t *testing.T) {
		f := newNotificationFixture(t)
		f.publisher.Err = fmt.Errorf("user %s: %w", f.recipient.ID, realtime.ErrNoConnection)

		_, err := f.svc.Dispatch(ctx, f.input())
		require.NoError(t, err)
		f.drain(t)

		assert.Len(t, f.publisher.Events(), 1)
		assert.Empty(t, f.jobFailures())
	})

	t.Run("refused job is logged and dispatch still succeeds", func(t *testing.T) {
		f := newNotificationFixture(t)
		f.drain(t)

		n, err := f.svc.Dispatch(ctx, f.input())
		require.NoError(t, err)
		assert.NotNil(t, n)
		assert.Contains(t, f.logs.Messages("WARN"), "failed to queue notification delivery")
	})

	t.Run("preference lookup failure falls back to defaults", func(t *testing.T) {
		f := newNotificationFixture(t)
		f.setPrefs(t, true, false)
		f.db.FailOn("users.GetByID", errors.New("replica lag"))

		_, err := f.svc.Dispatch(ctx, f.input())
		require.NoError(t, err)
		f.drain(t)
		f.db.ClearFailures()

		assert.Len(t, f.publisher.Events(), 1)
		assert.Empty(t, f.sender.Sent())
	})
}

func TestNotificationService_DispatchValidation(t *testing.T) {
	f := newNotificationFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*service.DispatchInput)
		field  string
	}{
		{"unknown type", func(in *service.DispatchInput) { in.Type = "task_archived" }, "type"},
		{"missing title", func(in *service.DispatchInput) { in.Title = "" }, "title"},
		{"missing message", func(in *service.DispatchInput) { in.Message = " " }, "message"},
		{"missing recipient", func(in *service.DispatchInput) { in.RecipientID = uuid.Nil }, "recipient"},
		{"missing sender", func(in *service.DispatchInput) { in.SenderID = uuid.Nil }, "sender"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := f.input()
			tc.mutate(&in)

			_, err := f.svc.Dispatch(ctx, in)
			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tc.field, verr.Field)
		})
	}

	t.Run("unknown recipient", func(t *testing.T) {
		in := f.input()
		in.RecipientID = uuid.New()
		_, err := f.svc.Dispatch(ctx, in)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	f.drain(t)
	assert.Empty(t, f.publisher.Events())
}

func TestNotificationService_List(t *testing.T) {
	ctx := context.Background()
	f := newNotificationFixture(t)
	other := testutils.SeedUser(t, f.db, domain.RoleUser)

	base := time.Now().Add(-time.Hour)
	var newest uuid.UUID
	for i := 0; i < service.ListLimit+10; i++ {
		n, err := domain.NewNotification(domain.NotificationTaskUpdated, "Task updated",
			fmt.Sprintf("change %d", i), f.recipient.ID, f.sender0.ID)
		require.NoError(t, err)
		n.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, f.db.Notifications().Create(ctx, n))
		newest = n.ID
	}
	foreign, err := domain.NewNotification(domain.NotificationTaskUpdated, "x", "y", other.ID, f.sender0.ID)
	require.NoError(t, err)
	require.NoError(t, f.db.Notifications().Create(ctx, foreign))

	views, err := f.svc.List(ctx, f.recipient.ID)
	require.NoError(t, err)
	require.Len(t, views, service.ListLimit)

	assert.Equal(t, newest, views[0].ID)
	for i := 1; i < len(views); i++ {
		assert.False(t, views[i].CreatedAt.After(views[i-1].CreatedAt), "not newest first at %d", i)
	}
	for _, v := range views {
		assert.Equal(t, f.recipient.ID, v.RecipientID)
	}
	require.NotNil(t, views[0].Sender)
	assert.Equal(t, f.sender0.FullName, views[0].Sender.FullName)
	assert.Equal(t, f.sender0.Email, views[0].Sender.Email)

	empty, err := f.svc.List(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestNotificationService_RecipientOnlyOperations(t *testing.T) {
	ctx := context.Background()
	f := newNotificationFixture(t)
	other := testutils.SeedUser(t, f.db, domain.RoleAdmin)

	n, err := f.svc.Dispatch(ctx, f.input())
	require.NoError(t, err)

	t.Run("other users see not found", func(t *testing.T) {
		_, err := f.svc.MarkRead(ctx, n.ID, other.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, f.svc.Delete(ctx, n.ID, other.ID), domain.ErrNotFound)

		_, missingErr := f.svc.MarkRead(ctx, uuid.New(), other.ID)
		assert.ErrorIs(t, missingErr, domain.ErrNotFound)
		assert.Equal(t, errorKind(err), errorKind(missingErr))
	})

	t.Run("recipient marks read", func(t *testing.T) {
		got, err := f.svc.MarkRead(ctx, n.ID, f.recipient.ID)
		require.NoError(t, err)
		assert.True(t, got.Read)

		again, err := f.svc.MarkRead(ctx, n.ID, f.recipient.ID)
		require.NoError(t, err)
		assert.True(t, again.Read)
	})

	t.Run("recipient deletes", func(t *testing.T) {
		require.NoError(t, f.svc.Delete(ctx, n.ID, f.recipient.ID))
		assert.ErrorIs(t, f.svc.Delete(ctx, n.ID, f.recipient.ID), domain.ErrNotFound)

		views, err := f.svc.List(ctx, f.recipient.ID)
		require.NoError(t, err)
		assert.Empty(t, views)
	})
}

// errorKind reduces an error to the category a client would see.
func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	default:
		return "other"
	}
}

func TestNotificationService_Preferences(t *testing.T) {
	ctx := context.Background()
	f := newNotificationFixture(t)

	prefs, err := f.svc.GetPreferences(ctx, f.recipient.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultNotificationPreferences(), prefs)

	t.Run("partial patch keeps the other channel", func(t *testing.T) {
		got, err := f.svc.SetPreferences(ctx, f.recipient.ID, service.PreferencesPatch{Email: ptr(true)})
		require.NoError(t, err)
		assert.Equal(t, domain.NotificationPreferences{Email: true, InApp: true}, got)

		got, err = f.svc.SetPreferences(ctx, f.recipient.ID, service.PreferencesPatch{InApp: ptr(false)})
		require.NoError(t, err)
		assert.Equal(t, domain.NotificationPreferences{Email: true, InApp: false}, got)

		stored, err := f.svc.GetPreferences(ctx, f.recipient.ID)
		require.NoError(t, err)
		assert.Equal(t, got, stored)
	})

	t.Run("empty patch", func(t *testing.T) {
		_, err := f.svc.SetPreferences(ctx, f.recipient.ID, service.PreferencesPatch{})
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.ErrorIs(t, err, service.ErrEmptyPatch)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.svc.GetPreferences(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = f.svc.SetPreferences(ctx, uuid.New(), service.PreferencesPatch{Email: ptr(true)})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestNotificationEmail(t *testing.T) {
	n, err := domain.NewNotification(domain.NotificationTaskCompleted, "Task completed",
		`"Write report" was completed`, uuid.New(), uuid.New())
	require.NoError(t, err)

	msg := service.NotificationEmail(service.Recipient{FullName: "Ada", Email: "ada@example.com"}, n)
	assert.Equal(t, "ada@example.com", msg.To)
	assert.Equal(t, "New Notification: Task completed", msg.Subject)
	assert.Contains(t, msg.Text, "Hello Ada,")
	assert.Contains(t, msg.Text, `"Write report" was completed`)
	assert.Contains(t, msg.Text, "Type: task_completed")
	assert.NoError(t, msg.Validate())

	anonymous := service.NotificationEmail(service.Recipient{Email: "x@example.com"}, n)
	assert.Contains(t, anonymous.Text, "Hello there,")
}
