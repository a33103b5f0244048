package realtime_test

import (
	"context"
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

	"github.com/storekit/storekit/pkg/realtime"
)

// testResolver authenticates any credential of the form "<id>:<role>" and
// rejects the literal credential "bad".
var testResolver = realtime.ResolverFunc(func(_ context.Context, credential string) (realtime.Identity, error) {
	if credential == "" {
		return realtime.Anonymous, nil
	}
	if credential == "bad" {
		return realtime.Identity{}, realtime.ErrAuthFailed
	}
	id, role, _ := strings.Cut(credential, ":")
	if role == "" {
		role = realtime.RoleUser
	}
	return realtime.Identity{ID: id, Email: id + "@example.com", Role: role}, nil
})

func newTestServer(t *testing.T, hub *realtime.Hub) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(hub.Accept))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { _ = hub.Close() })
	return srv
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	if token != "" {
		url += "?token=" + token
	}
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func readEnvelope(t *testing.T, ws *websocket.Conn) realtime.Envelope {
	t.Helper()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var env realtime.Envelope
	require.NoError(t, ws.ReadJSON(&env))
	return env
}

func TestHub_AnonymousConnect(t *testing.T) {
	t.Parallel()

	hub := realtime.NewHub(testResolver)
	srv := newTestServer(t, hub)

	dial(t, srv, "")

	require.Eventually(t, func() bool {
		return hub.ConnCount() == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestHub_InvalidCredentialRefused(t *testing.T) {
	t.Parallel()

	hub := realtime.NewHub(testResolver)
	srv := newTestServer(t, hub)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=bad"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, hub.ConnCount())
}

func TestHub_BearerPrefixTolerated(t *testing.T) {
	t.Parallel()

	hub := realtime.NewHub(testResolver)
	srv := newTestServer(t, hub)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{"Authorization": []string{"Bearer alice:user"}}
	ws, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	require.Eventually(t, func() bool {
		return hub.Rooms().Count("user:alice") == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestHub_AckRoundTrip(t *testing.T) {
	t.Parallel()

	hub := realtime.NewHub(testResolver)
	hub.Handle("echo", func(_ context.Context, _ *realtime.Conn, data json.RawMessage, ack realtime.AckFunc) {
		ack(realtime.AckOK(map[string]any{"echo": json.RawMessage(data)}))
	})
	srv := newTestServer(t, hub)

	ws := dial(t, srv, "")
	require.NoError(t, ws.WriteJSON(realtime.Envelope{
		Event: "echo",
		Data:  json.RawMessage(`{"n":1}`),
		Ack:   "a1",
	}))

	env := readEnvelope(t, ws)
	assert.Equal(t, realtime.AckEvent, env.Event)
	assert.Equal(t, "a1", env.Ack)

	var payload struct {
		OK   bool            `json:"ok"`
		Echo json.RawMessage `json:"echo"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.True(t, payload.OK)
	assert.JSONEq(t, `{"n":1}`, string(payload.Echo))
}

func TestHub_UnknownEventKeepsConnectionOpen(t *testing.T) {
	t.Parallel()

	hub := realtime.NewHub(testResolver)
	hub.Handle("ping", func(_ context.Context, _ *realtime.Conn, _ json.RawMessage, ack realtime.AckFunc) {
		ack(realtime.AckOK())
	})
	srv := newTestServer(t, hub)

	ws := dial(t, srv, "")
	require.NoError(t, ws.WriteJSON(realtime.Envelope{Event: "nope", Ack: "a1"}))

	env := readEnvelope(t, ws)
	assert.Equal(t, "a1", env.Ack)
	assert.Contains(t, string(env.Data), "unknown event")

	// The connection survives and still serves known events.
	require.NoError(t, ws.WriteJSON(realtime.Envelope{Event: "ping", Ack: "a2"}))
	env = readEnvelope(t, ws)
	assert.Equal(t, "a2", env.Ack)
}

func TestHub_HandlerPanicKeepsConnectionOpen(t *testing.T) {
	t.Parallel()

	hub := realtime.NewHub(testResolver)
	hub.Handle("boom", func(_ context.Context, _ *realtime.Conn, _ json.RawMessage, ack realtime.AckFunc) {
		panic("handler bug")
	})
	hub.Handle("ping", func(_ context.Context, _ *realtime.Conn, _ json.RawMessage, ack realtime.AckFunc) {
		ack(realtime.AckOK())
	})
	srv := newTestServer(t, hub)

	ws := dial(t, srv, "")
	require.NoError(t, ws.WriteJSON(realtime.Envelope{Event: "boom", Ack: "a1"}))

	env := readEnvelope(t, ws)
	assert.Equal(t, "a1", env.Ack)
	assert.Contains(t, string(env.Data), "internal error")

	require.NoError(t, ws.WriteJSON(realtime.Envelope{Event: "ping", Ack: "a2"}))
	env = readEnvelope(t, ws)
	assert.Equal(t, "a2", env.Ack)
}

func TestHub_UserRoomDelivery(t *testing.T) {
	t.Parallel()

	hub := realtime.NewHub(testResolver)
	srv := newTestServer(t, hub)

	alice := dial(t, srv, "alice:user")
	bob := dial(t, srv, "bob:user")

	require.Eventually(t, func() bool {
		return hub.Rooms().Count("user:alice") == 1 && hub.Rooms().Count("user:bob") == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.To("user:alice").Emit("notification:received", map[string]any{"title": "hi"}))

	env := readEnvelope(t, alice)
	assert.Equal(t, "notification:received", env.Event)

	// Bob must not receive Alice's event.
	require.NoError(t, bob.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	var stray realtime.Envelope
	assert.Error(t, bob.ReadJSON(&stray))
}

func TestHub_GlobalEmit(t *testing.T) {
	t.Parallel()

	hub := realtime.NewHub(testResolver)
	srv := newTestServer(t, hub)

	first := dial(t, srv, "alice:user")
	second := dial(t, srv, "")

	require.Eventually(t, func() bool {
		return hub.ConnCount() == 2
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Emit("product:stockUpdated", map[string]any{"productId": "p1", "delta": -2}))

	for _, ws := range []*websocket.Conn{first, second} {
		env := readEnvelope(t, ws)
		assert.Equal(t, "product:stockUpdated", env.Event)
	}
}

func TestHub_DisconnectCleansRooms(t *testing.T) {
	t.Parallel()

	gone := make(chan string, 1)
	hub := realtime.NewHub(testResolver,
		realtime.WithDisconnectHook(func(c *realtime.Conn) {
			gone <- c.Identity().ID
		}))
	srv := newTestServer(t, hub)

	ws := dial(t, srv, "alice:user")
	require.Eventually(t, func() bool {
		return hub.Rooms().Count("user:alice") == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, ws.Close())

	require.Eventually(t, func() bool {
		return hub.ConnCount() == 0 && hub.Rooms().Count("user:alice") == 0
	}, 5*time.Second, 10*time.Millisecond)

	select {
	case id := <-gone:
		assert.Equal(t, "alice", id)
	case <-time.After(5 * time.Second):
		t.Fatal("disconnect hook did not run")
	}
}

func TestHub_ConnectHookSeesIdentity(t *testing.T) {
	t.Parallel()

	identities := make(chan realtime.Identity, 1)
	hub := realtime.NewHub(testResolver,
		realtime.WithConnectHook(func(c *realtime.Conn) {
			identities <- c.Identity()
		}))
	srv := newTestServer(t, hub)

	dial(t, srv, "carol:admin")

	select {
	case identity := <-identities:
		assert.Equal(t, "carol", identity.ID)
		assert.True(t, identity.IsAdmin())
	case <-time.After(5 * time.Second):
		t.Fatal("connect hook did not run")
	}
}

func TestHub_SendToUnknownConn(t *testing.T) {
	t.Parallel()

	hub := realtime.NewHub(testResolver)
	t.Cleanup(func() { _ = hub.Close() })

	err := hub.Send(uuid.New(), "x", nil)
	assert.ErrorIs(t, err, realtime.ErrConnNotFound)
}
