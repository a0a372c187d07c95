package hub

import (
	"encoding/json"
	"log/slog"

	"github.com/parlorchat/parlor/internal/chat"
	"github.com/parlorchat/parlor/internal/presence"
)

// Router translates domain events into their wire envelopes and hands them
// to the hub for fan-out. Both the real-time channel and the REST message
// endpoint publish through it, so all clients observe one consistent stream.
type Router struct {
	hub *Hub
	log *slog.Logger
}

// NewRouter creates a broadcast router over the hub.
func NewRouter(h *Hub, log *slog.Logger) *Router {
	return &Router{hub: h, log: log}
}

// NewMessage broadcasts a persisted message to the room's message group.
func (r *Router) NewMessage(roomID string, payload chat.MessagePayload) {
	data, err := json.Marshal(payload)
	if err != nil {
		r.log.Error("marshal message payload", "room_id", roomID, "err", err)
		return
	}
	r.hub.Broadcast(BroadcastMessage{RoomID: roomID, Group: GroupMessages, Payload: data})
}

// PresenceChanged broadcasts a presence_update to the room's presence group.
func (r *Router) PresenceChanged(roomID, event string, userID uint, userName string, online []uint) {
	data, err := json.Marshal(chat.NewPresenceUpdate(event, userID, userName, online))
	if err != nil {
		r.log.Error("marshal presence update", "room_id", roomID, "err", err)
		return
	}
	r.hub.Broadcast(BroadcastMessage{RoomID: roomID, Group: GroupPresence, Payload: data})
}

// PresenceEvicted broadcasts the user_left update for a swept presence entry.
func (r *Router) PresenceEvicted(ev presence.Eviction) {
	r.PresenceChanged(ev.RoomID, chat.EventUserLeft, ev.UserID, ev.UserName, ev.Online)
}
