package hub

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlorchat/parlor/internal/chat"
	"github.com/parlorchat/parlor/internal/presence"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testClient builds a session without a live socket so the registry can be
// exercised directly. bufferSize controls how much the fan-out may queue
// before the client counts as failed.
func testClient(h *Hub, roomID, id string, bufferSize int) *Client {
	return &Client{
		id:     id,
		send:   make(chan []byte, bufferSize),
		hub:    h,
		addr:   "test",
		roomID: roomID,
		log:    testLogger(),
	}
}

func receivePayload(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case payload := <-c.send:
		return payload
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for payload")
		return nil
	}
}

func TestHubAddAndRemoveClient(t *testing.T) {
	h := NewHub(testLogger())
	client := testClient(h, "7", "c1", 1)

	h.addClient(client)
	assert.Equal(t, 1, h.RoomSize("7", GroupMessages))
	assert.Equal(t, 1, h.RoomSize("7", GroupPresence))

	h.removeClients([]*Client{client}, "test")
	assert.Equal(t, 0, h.RoomSize("7", GroupMessages))
	assert.Equal(t, 0, h.RoomSize("7", GroupPresence))

	_, open := <-client.send
	assert.False(t, open, "send channel should be closed on removal")

	h.mutex.RLock()
	_, exists := h.rooms["7"]
	h.mutex.RUnlock()
	assert.False(t, exists, "empty room should be dropped from the registry")
}

func TestHubRemoveUnknownClientIsNoOp(t *testing.T) {
	h := NewHub(testLogger())
	known := testClient(h, "7", "c1", 1)
	stranger := testClient(h, "7", "c2", 1)

	h.addClient(known)
	h.removeClients([]*Client{stranger}, "test")

	assert.Equal(t, 1, h.RoomSize("7", GroupMessages))
	select {
	case <-stranger.send:
		t.Fatal("unknown client's channel should stay open and empty")
	default:
	}
}

func TestHubBroadcastReachesRoomGroupOnly(t *testing.T) {
	h := NewHub(testLogger())
	a := testClient(h, "7", "a", 4)
	b := testClient(h, "7", "b", 4)
	other := testClient(h, "8", "other", 4)
	for _, c := range []*Client{a, b, other} {
		h.addClient(c)
	}

	h.handleBroadcast(BroadcastMessage{RoomID: "7", Group: GroupMessages, Payload: []byte("hello")})

	assert.Equal(t, []byte("hello"), receivePayload(t, a))
	assert.Equal(t, []byte("hello"), receivePayload(t, b))
	select {
	case payload := <-other.send:
		t.Fatalf("room 8 should not receive room 7 traffic, got %q", payload)
	default:
	}
}

func TestHubBroadcastRemovesFailedClients(t *testing.T) {
	h := NewHub(testLogger())
	healthy := testClient(h, "7", "healthy", 4)
	// An unbuffered channel with no reader makes every send fail without
	// blocking the fan-out.
	stuck := testClient(h, "7", "stuck", 0)
	h.addClient(healthy)
	h.addClient(stuck)

	h.handleBroadcast(BroadcastMessage{RoomID: "7", Group: GroupMessages, Payload: []byte("x")})

	assert.Equal(t, []byte("x"), receivePayload(t, healthy))
	assert.Equal(t, 1, h.RoomSize("7", GroupMessages), "stuck client should have been removed")
	assert.True(t, stuck.closed)
}

func TestEnqueueAfterRemovalDropsPayload(t *testing.T) {
	h := NewHub(testLogger())
	client := testClient(h, "7", "c1", 1)
	h.addClient(client)

	// Fill the buffer, then fail a delivery so the fan-out removes the
	// client and closes its send channel.
	h.handleBroadcast(BroadcastMessage{RoomID: "7", Group: GroupMessages, Payload: []byte("first")})
	h.handleBroadcast(BroadcastMessage{RoomID: "7", Group: GroupMessages, Payload: []byte("second")})
	require.Equal(t, 0, h.RoomSize("7", GroupMessages))

	// The read side may still be handling a frame for this session; its
	// reply must be dropped, never sent on the closed channel.
	require.NotPanics(t, func() {
		client.enqueue([]byte(`{"type":"pong"}`))
	})
}

func TestHubBroadcastToEmptyRoom(t *testing.T) {
	h := NewHub(testLogger())

	// Must not panic or register anything.
	h.handleBroadcast(BroadcastMessage{RoomID: "99", Group: GroupPresence, Payload: []byte("{}")})
	assert.Equal(t, 0, h.RoomSize("99", GroupPresence))
}

func TestHubShutdownUnblocksSubmitters(t *testing.T) {
	h := NewHub(testLogger())
	go h.Run()

	require.NoError(t, h.Shutdown(time.Second))

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Registration after shutdown must return instead of blocking on
		// the unserviced channel.
		h.Register(testClient(h, "7", "late", 1))
		h.Broadcast(BroadcastMessage{RoomID: "7", Group: GroupMessages, Payload: []byte("x")})
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Register/Broadcast blocked after shutdown")
	}
}

func TestRouterNewMessage(t *testing.T) {
	h := NewHub(testLogger())
	r := NewRouter(h, testLogger())

	userID := uint(42)
	r.NewMessage("7", chat.MessagePayload{
		ID:        1,
		UserName:  "ada",
		UserID:    &userID,
		Content:   "hello",
		CreatedAt: "2026-08-29T00:00:00Z",
	})

	msg := <-h.broadcast
	assert.Equal(t, "7", msg.RoomID)
	assert.Equal(t, GroupMessages, msg.Group)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
	assert.Equal(t, "ada", decoded["user_name"])
	assert.Equal(t, float64(42), decoded["user_id"])
	assert.Equal(t, "hello", decoded["content"])
}

func TestRouterPresenceChanged(t *testing.T) {
	h := NewHub(testLogger())
	r := NewRouter(h, testLogger())

	r.PresenceChanged("7", chat.EventUserJoined, 42, "ada", []uint{42, 7})

	msg := <-h.broadcast
	assert.Equal(t, "7", msg.RoomID)
	assert.Equal(t, GroupPresence, msg.Group)

	var update chat.PresenceUpdate
	require.NoError(t, json.Unmarshal(msg.Payload, &update))
	assert.Equal(t, "presence_update", update.Type)
	assert.Equal(t, chat.EventUserJoined, update.Event)
	assert.Equal(t, uint(42), update.UserID)
	assert.Equal(t, "ada", update.UserName)
	assert.Equal(t, []uint{42, 7}, update.OnlineUsers)
	assert.NotEmpty(t, update.Timestamp)
}

func TestRouterPresenceEvicted(t *testing.T) {
	h := NewHub(testLogger())
	r := NewRouter(h, testLogger())

	r.PresenceEvicted(presence.Eviction{RoomID: "7", UserID: 9, UserName: "idle", Online: []uint{}})

	msg := <-h.broadcast
	assert.Equal(t, GroupPresence, msg.Group)

	var update chat.PresenceUpdate
	require.NoError(t, json.Unmarshal(msg.Payload, &update))
	assert.Equal(t, chat.EventUserLeft, update.Event)
	assert.Equal(t, uint(9), update.UserID)
	assert.Empty(t, update.OnlineUsers)
}
