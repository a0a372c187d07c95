package chat

import "time"

// Presence update event names.
const (
	EventUserJoined = "user_joined"
	EventUserLeft   = "user_left"
)

// MessagePayload is the wire representation of a persisted message. It is
// both the broadcast body on the real-time channel and the REST response for
// posted messages.
type MessagePayload struct {
	ID        uint   `json:"id"`
	UserName  string `json:"user_name"`
	UserID    *uint  `json:"user_id"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// PresenceUpdate announces a roster change to a room's presence group.
type PresenceUpdate struct {
	Type        string `json:"type"`
	Event       string `json:"event"`
	UserID      uint   `json:"user_id"`
	UserName    string `json:"user_name"`
	OnlineUsers []uint `json:"online_users"`
	Timestamp   string `json:"timestamp"`
}

// NewPresenceUpdate builds a presence_update envelope with the current time.
func NewPresenceUpdate(event string, userID uint, userName string, online []uint) PresenceUpdate {
	if online == nil {
		online = []uint{}
	}
	return PresenceUpdate{
		Type:        "presence_update",
		Event:       event,
		UserID:      userID,
		UserName:    userName,
		OnlineUsers: online,
		Timestamp:   FormatTime(time.Now()),
	}
}

// Pong is the reply to an inbound ping frame.
var Pong = []byte(`{"type":"pong"}`)

// FormatTime renders timestamps in the ISO-8601 form clients expect.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
