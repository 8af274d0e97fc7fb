package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/teamtask-api/internal/api"
	"github.com/phrazzld/teamtask-api/internal/api/middleware"
	"github.com/phrazzld/teamtask-api/internal/api/shared"
	"github.com/phrazzld/teamtask-api/internal/config"
	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/phrazzld/teamtask-api/internal/events"
	"github.com/phrazzld/teamtask-api/internal/mocks"
	"github.com/phrazzld/teamtask-api/internal/platform/logger"
	"github.com/phrazzld/teamtask-api/internal/service"
	"github.com/phrazzld/teamtask-api/internal/service/auth"
	"github.com/phrazzld/teamtask-api/internal/testutils"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret-that-is-at-least-32-characters-long"

// harness wires the real services over in-memory stores behind the real
// router and auth middleware. Deliveries run inline.
type harness struct {
	db        *testutils.MemoryDB
	router    http.Handler
	jwt       auth.JWTService
	publisher *mocks.MockPublisher
	sender    *mocks.MockSender
	jobs      *testutils.InlineJobs
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	log := logger.Discard()
	db := testutils.NewMemoryDB()
	h := &harness{
		db:        db,
		publisher: &mocks.MockPublisher{},
		sender:    &mocks.MockSender{},
		jobs:      &testutils.InlineJobs{},
	}

	jwtService, err := auth.NewJWTService(config.AuthConfig{JWTSecret: testJWTSecret, TokenLifetimeMinutes: 60})
	require.NoError(t, err)
	h.jwt = jwtService

	notifications, err := service.NewNotificationService(service.NotificationDeps{
		Notifications: db.Notifications(),
		Users:         db.Users(),
		Realtime:      h.publisher,
		Email:         h.sender,
		Jobs:          h.jobs,
	}, log)
	require.NoError(t, err)

	emitter := events.NewInMemoryEventEmitter(log)
	emitter.RegisterHandler(service.NewNotificationEventHandler(notifications, log))

	tasks, err := service.NewTaskService(db.Tasks(), db.Users(), emitter, log)
	require.NoError(t, err)
	teams, err := service.NewTeamService(db, db.Teams(), db.Users(), log)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(middleware.NewTraceMiddleware(log))
	api.Routes{
		Tasks:         api.NewTaskHandler(tasks, log),
		Teams:         api.NewTeamHandler(teams, log),
		Notifications: api.NewNotificationHandler(notifications, log),
	}.Register(r, middleware.NewAuthMiddleware(jwtService, log).Authenticate)
	h.router = r
	return h
}

func (h *harness) user(t *testing.T, role domain.Role) *domain.User {
	t.Helper()
	return testutils.SeedUser(t, h.db, role)
}

// do sends a request as actor (anonymous when nil). body is JSON encoded
// unless it is already a string.
func (h *harness) do(t *testing.T, method, path string, actor *domain.User, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		token, err := h.jwt.GenerateToken(context.Background(), actor.ID, actor.Role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body: %s", rr.Body.String())
	return v
}

func errorBody(t *testing.T, rr *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()
	return decode[shared.ErrorResponse](t, rr)
}
