// Package chat defines the wire protocol for the real-time channel and the
// ingest pipeline that persists and prepares messages for fan-out.
package chat

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FrameKind classifies an inbound frame before any handler logic runs, so
// the session state machine is a plain switch rather than nested key checks.
type FrameKind int

const (
	// FrameUnrecognized marks frames that are unparseable or yield no
	// content. They are dropped silently.
	FrameUnrecognized FrameKind = iota
	// FramePing requests a pong reply.
	FramePing
	// FrameUserConnected identifies the user behind the session.
	FrameUserConnected
	// FrameHeartbeat refreshes the sender's presence entry.
	FrameHeartbeat
	// FrameChat carries a chat message to persist and broadcast.
	FrameChat
)

// AnonymousName is the display name used when a chat payload carries none.
const AnonymousName = "anonymous"

// Frame is one decoded inbound event. UserID is zero when the frame carries
// no user identifier.
type Frame struct {
	Kind     FrameKind
	UserID   uint
	UserName string
	Content  string
}

// wireFrame accepts every key alias the protocol tolerates. Unknown keys are
// ignored; ids arrive as JSON numbers or strings depending on the client.
type wireFrame struct {
	Type      string          `json:"type"`
	User      json.RawMessage `json:"user"`
	UserName  json.RawMessage `json:"user_name"`
	UserID    json.RawMessage `json:"user_id"`
	UserIDAlt json.RawMessage `json:"userId"`
	Content   json.RawMessage `json:"content"`
	Text      json.RawMessage `json:"text"`
	Message   json.RawMessage `json:"message"`
}

// DecodeChatPayload extracts the loosely-keyed chat fields from a request
// body posted to the message endpoint. It tolerates the same aliases as the
// real-time channel, plus "message" for content. ok is false only when the
// body is not valid JSON.
func DecodeChatPayload(data []byte) (userName string, userID uint, content string, ok bool) {
	var wire wireFrame
	if err := json.Unmarshal(data, &wire); err != nil {
		return "", 0, "", false
	}
	userName = decodeString(wire.User, wire.UserName)
	userID = decodeID(wire.UserID, wire.UserIDAlt)
	content = decodeString(wire.Content, wire.Text, wire.Message)
	return userName, userID, content, true
}

// DecodeFrame classifies a raw inbound frame. A frame without a recognized
// "type" is a chat payload if it yields non-empty content, otherwise
// unrecognized.
func DecodeFrame(data []byte) Frame {
	var wire wireFrame
	if err := json.Unmarshal(data, &wire); err != nil {
		return Frame{Kind: FrameUnrecognized}
	}

	switch wire.Type {
	case "ping":
		return Frame{Kind: FramePing}
	case "heartbeat":
		return Frame{Kind: FrameHeartbeat}
	case "user_connected":
		return Frame{
			Kind:     FrameUserConnected,
			UserID:   decodeID(wire.UserID, wire.UserIDAlt),
			UserName: decodeString(wire.UserName, wire.User),
		}
	}

	content := decodeString(wire.Content, wire.Text)
	if content == "" {
		return Frame{Kind: FrameUnrecognized}
	}

	name := decodeString(wire.User, wire.UserName)
	if name == "" {
		name = AnonymousName
	}
	return Frame{
		Kind:     FrameChat,
		UserID:   decodeID(wire.UserID, wire.UserIDAlt),
		UserName: name,
		Content:  content,
	}
}

// decodeString returns the first candidate that decodes to a non-empty
// string. Numeric values are stringified.
func decodeString(candidates ...json.RawMessage) string {
	for _, raw := range candidates {
		if len(raw) == 0 {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s != "" {
				return s
			}
			continue
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			return n.String()
		}
	}
	return ""
}

// decodeID returns the first candidate that decodes to a positive integer id.
func decodeID(candidates ...json.RawMessage) uint {
	for _, raw := range candidates {
		if len(raw) == 0 {
			continue
		}
		var n uint
		if err := json.Unmarshal(raw, &n); err == nil && n > 0 {
			return n
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			parsed, perr := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
			if perr == nil && parsed > 0 {
				return uint(parsed)
			}
		}
	}
	return 0
}
