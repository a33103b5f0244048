package realtime_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storekit/storekit/pkg/notifications"
	gw "github.com/storekit/storekit/pkg/realtime"
)

type presencePayload struct {
	UserID string    `json:"userId"`
	Status string    `json:"status"`
	At     time.Time `json:"at"`
}

func TestPresence_AnnouncedOnConnectAndDisconnect(t *testing.T) {
	t.Parallel()

	f := newModuleFixture(t)
	observer := f.dial(t, "") // anonymous, so it announces nothing itself

	visitor := f.dial(t, "U2:user")

	env := readUntil(t, observer, "presence:update")
	var online presencePayload
	require.NoError(t, json.Unmarshal(env.Data, &online))
	assert.Equal(t, "U2", online.UserID)
	assert.Equal(t, "online", online.Status)
	assert.False(t, online.At.IsZero())

	require.NoError(t, visitor.Close())

	env = readUntil(t, observer, "presence:update")
	var offline presencePayload
	require.NoError(t, json.Unmarshal(env.Data, &offline))
	assert.Equal(t, "U2", offline.UserID)
	assert.Equal(t, "offline", offline.Status)
}

func TestPresence_AnonymousIsNotAnnounced(t *testing.T) {
	t.Parallel()

	f := newModuleFixture(t)
	observer := f.dial(t, "")

	_ = f.dial(t, "")

	// A named arrival after the anonymous one proves the anonymous
	// connect produced no announcement in between.
	_ = f.dial(t, "U3:user")

	env := readUntil(t, observer, "presence:update")
	var update presencePayload
	require.NoError(t, json.Unmarshal(env.Data, &update))
	assert.Equal(t, "U3", update.UserID)
}

func TestJoinRoom_EchoesAndDelivers(t *testing.T) {
	t.Parallel()

	f := newModuleFixture(t)
	member := f.dial(t, "U1:user")

	// Object form of the payload.
	send(t, member, "joinRoom", map[string]any{"room": "order:o1"}, "a1")

	env := readUntil(t, member, "joined")
	var room string
	require.NoError(t, json.Unmarshal(env.Data, &room))
	assert.Equal(t, "order:o1", room)

	payload := readAck(t, member, "a1")
	assert.Equal(t, true, payload["ok"])

	require.NoError(t, f.hub.To("order:o1").Emit("order:updated", map[string]any{"id": "o1"}))
	env = readUntil(t, member, "order:updated")
	assert.JSONEq(t, `{"id":"o1"}`, string(env.Data))
}

func TestLeaveRoom_StopsDeliveryAndToleratesUnknownRoom(t *testing.T) {
	t.Parallel()

	f := newModuleFixture(t)
	member := f.dial(t, "U1:user")

	// Bare string form of the payload.
	send(t, member, "joinRoom", "product:p1", "a1")
	readAck(t, member, "a1")

	send(t, member, "leaveRoom", "product:p1", "a2")
	env := readUntil(t, member, "left")
	var room string
	require.NoError(t, json.Unmarshal(env.Data, &room))
	assert.Equal(t, "product:p1", room)
	readAck(t, member, "a2")

	// Leaving a room never joined still acks ok.
	send(t, member, "leaveRoom", "product:p2", "a3")
	payload := readAck(t, member, "a3")
	assert.Equal(t, true, payload["ok"])

	require.NoError(t, f.hub.To("product:p1").Emit("product:stockUpdated", map[string]any{"productId": "p1"}))

	// The member no longer receives room traffic; a direct send proves
	// the connection itself is still live, and it arrives before any
	// stale room frame would.
	members := f.hub.Rooms().MembersOf(gw.UserRoom("U1"))
	require.Len(t, members, 1)
	require.NoError(t, f.hub.Send(members[0], "ping", nil))

	env = readUntil(t, member, "ping")
	assert.Equal(t, "ping", env.Event)
	assert.False(t, f.hub.Rooms().Contains("product:p1", members[0]))
}

func TestJoinRoom_AdminRoomGate(t *testing.T) {
	t.Parallel()

	f := newModuleFixture(t)

	user := f.dial(t, "U1:user")
	send(t, user, "joinRoom", gw.AdminRoom, "a1")
	payload := readAck(t, user, "a1")
	assert.Equal(t, "Unauthorized", payload["error"])

	admin := f.dial(t, "A1:admin")
	send(t, admin, "joinRoom", gw.AdminRoom, "a2")
	payload = readAck(t, admin, "a2")
	assert.Equal(t, true, payload["ok"])
}

func TestTyping_ExcludesSender(t *testing.T) {
	t.Parallel()

	f := newModuleFixture(t)
	alice := f.dial(t, "U1:user")
	bob := f.dial(t, "U2:user")

	send(t, alice, "typing", map[string]any{"toUserId": "U2"}, "a1")
	payload := readAck(t, alice, "a1")
	require.Equal(t, true, payload["ok"])

	env := readUntil(t, bob, "typing")
	var typing struct {
		UserID string `json:"userId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &typing))
	assert.Equal(t, "U1", typing.UserID)

	// Typing into her own user room must not echo back; a notification
	// sent afterwards arrives with no typing frame in front of it.
	send(t, alice, "typing", map[string]any{"toUserId": "U1"}, "a2")
	readAck(t, alice, "a2")
	send(t, alice, "notification:send", map[string]any{"toUserId": "U1", "title": "t", "body": "b"}, "a3")
	readAck(t, alice, "a3")

	require.NoError(t, alice.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var frame gw.Envelope
		require.NoError(t, alice.ReadJSON(&frame))
		require.NotEqual(t, "typing", frame.Event)
		if frame.Event == notifications.EventReceived {
			break
		}
	}
}

func TestTyping_RequiresTarget(t *testing.T) {
	t.Parallel()

	f := newModuleFixture(t)
	alice := f.dial(t, "U1:user")

	send(t, alice, "typing", map[string]any{}, "a1")
	payload := readAck(t, alice, "a1")
	assert.Contains(t, payload["error"], "need room or toUserId")
}
