package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// headerIdentity stands in for the auth middleware.
func headerIdentity(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.Header.Get("X-Test-User"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func TestHandler_PushesEventsToAuthenticatedUser(t *testing.T) {
	hub := NewHub(testLogger())
	defer func() { _ = hub.Close() }()

	handler := NewHandler(hub, headerIdentity, ClientConfig{SendBuffer: 4}, nil, testLogger())
	server := httptest.NewServer(handler)
	defer server.Close()

	user := uuid.New()
	header := http.Header{}
	header.Set("X-Test-User", user.String())
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	_ = resp.Body.Close()

	waitFor(t, func() bool { return hub.Connected(user) })

	require.NoError(t, hub.Emit(user, EventNotification, map[string]string{"title": "hello"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, EventNotification, env.Event)
	assert.JSONEq(t, `{"title":"hello"}`, string(env.Payload))

	require.NoError(t, conn.Close())
	waitFor(t, func() bool { return !hub.Connected(user) })
}

func TestHandler_RejectsUnauthenticated(t *testing.T) {
	hub := NewHub(testLogger())
	handler := NewHandler(hub, headerIdentity, ClientConfig{}, nil, testLogger())
	server := httptest.NewServer(handler)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestOriginChecker(t *testing.T) {
	assert.Nil(t, originChecker(nil))

	anyOrigin := originChecker([]string{"*"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://evil.example")
	assert.True(t, anyOrigin(req))

	check := originChecker([]string{"https://app.example"})
	assert.False(t, check(req))
	req.Header.Set("Origin", "https://app.example")
	assert.True(t, check(req))
}

func TestClient_SendAfterClose(t *testing.T) {
	hub := NewHub(testLogger())
	var client *Client
	joined := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client = NewClient(ws, ClientConfig{SendBuffer: 1}, testLogger())
		close(joined)
	}))
	defer server.Close()
	defer func() { _ = hub.Close() }()

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	defer func() { _ = conn.Close() }()
	<-joined

	// Nothing pumps the buffer, so the second message overflows.
	require.NoError(t, client.Send([]byte(`{}`)))
	assert.ErrorIs(t, client.Send([]byte(`{}`)), ErrSlowConsumer)

	_ = client.Close()
	assert.ErrorIs(t, client.Send([]byte(`{}`)), ErrConnClosed)
	<-client.Done()
}
