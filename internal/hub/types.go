// Package hub coordinates session registration, room-scoped message and
// presence broadcast, and connection cleanup for the Parlor real-time
// channel.
package hub

import "strings"

// Group selects which of a room's two subscription namespaces a broadcast
// targets. Every session currently joins both on connect, but the namespaces
// stay distinct so a client could subscribe to presence updates without the
// message stream.
type Group int

const (
	// GroupMessages receives persisted chat messages.
	GroupMessages Group = iota
	// GroupPresence receives presence_update events.
	GroupPresence
)

// BroadcastMessage is one event to fan out to every session subscribed to a
// room group.
type BroadcastMessage struct {
	RoomID  string
	Group   Group
	Payload []byte
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
