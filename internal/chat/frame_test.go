package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrameClassification(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Frame
	}{
		{
			name: "ping",
			raw:  `{"type":"ping"}`,
			want: Frame{Kind: FramePing},
		},
		{
			name: "heartbeat",
			raw:  `{"type":"heartbeat"}`,
			want: Frame{Kind: FrameHeartbeat},
		},
		{
			name: "user connected",
			raw:  `{"type":"user_connected","user_id":7,"user_name":"Alice"}`,
			want: Frame{Kind: FrameUserConnected, UserID: 7, UserName: "Alice"},
		},
		{
			name: "user connected with string id",
			raw:  `{"type":"user_connected","user_id":"12","user_name":"Bob"}`,
			want: Frame{Kind: FrameUserConnected, UserID: 12, UserName: "Bob"},
		},
		{
			name: "chat with user alias",
			raw:  `{"user":"a","content":"hello"}`,
			want: Frame{Kind: FrameChat, UserName: "a", Content: "hello"},
		},
		{
			name: "chat with text alias and camel case id",
			raw:  `{"user_name":"Bob","userId":3,"text":"hi"}`,
			want: Frame{Kind: FrameChat, UserID: 3, UserName: "Bob", Content: "hi"},
		},
		{
			name: "chat without any name defaults to anonymous",
			raw:  `{"content":"plain"}`,
			want: Frame{Kind: FrameChat, UserName: AnonymousName, Content: "plain"},
		},
		{
			name: "unknown type with content is still chat",
			raw:  `{"type":"shout","content":"loud"}`,
			want: Frame{Kind: FrameChat, UserName: AnonymousName, Content: "loud"},
		},
		{
			name: "unknown type without content",
			raw:  `{"type":"mystery"}`,
			want: Frame{Kind: FrameUnrecognized},
		},
		{
			name: "empty content",
			raw:  `{"user":"a","content":""}`,
			want: Frame{Kind: FrameUnrecognized},
		},
		{
			name: "not json",
			raw:  `this is not json`,
			want: Frame{Kind: FrameUnrecognized},
		},
		{
			name: "unknown keys ignored",
			raw:  `{"type":"ping","extra":"ignored"}`,
			want: Frame{Kind: FramePing},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeFrame([]byte(tt.raw)))
		})
	}
}

func TestDecodeFrameNonNumericIDDropped(t *testing.T) {
	frame := DecodeFrame([]byte(`{"user_id":"abc","content":"hi"}`))
	require.Equal(t, FrameChat, frame.Kind)
	assert.Zero(t, frame.UserID)
}

func TestDecodeChatPayload(t *testing.T) {
	name, userID, content, ok := DecodeChatPayload([]byte(`{"user_name":"Bob","userId":"4","message":"posted"}`))
	require.True(t, ok)
	assert.Equal(t, "Bob", name)
	assert.Equal(t, uint(4), userID)
	assert.Equal(t, "posted", content)

	_, _, _, ok = DecodeChatPayload([]byte(`{broken`))
	assert.False(t, ok)

	name, userID, content, ok = DecodeChatPayload([]byte(`{}`))
	require.True(t, ok)
	assert.Empty(t, name)
	assert.Zero(t, userID)
	assert.Empty(t, content)
}
