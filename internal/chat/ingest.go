package chat

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/parlorchat/parlor/internal/store"
)

// Pipeline validates an incoming chat payload, persists it, and produces the
// broadcast payload. Persistence failures are reported once to the caller;
// nothing is broadcast and nothing is retried.
type Pipeline struct {
	rooms    *store.RoomRepository
	messages *store.MessageRepository
	users    *store.UserRepository
	log      *slog.Logger
}

// NewPipeline creates a message ingest pipeline over the given repositories.
func NewPipeline(rooms *store.RoomRepository, messages *store.MessageRepository, users *store.UserRepository, log *slog.Logger) *Pipeline {
	return &Pipeline{rooms: rooms, messages: messages, users: users, log: log}
}

// Ingest persists one chat message into the room, creating the room record
// on demand, and returns the payload to broadcast. An unresolvable userID
// degrades to an anonymous message rather than failing the operation.
func (p *Pipeline) Ingest(roomID uint, userName string, userID uint, content string) (MessagePayload, error) {
	room, err := p.rooms.GetOrCreate(roomID)
	if err != nil {
		return MessagePayload{}, fmt.Errorf("ingest: %w", err)
	}

	var resolvedID *uint
	if userID != 0 {
		user, err := p.users.FindByID(userID)
		switch {
		case err == nil:
			id := user.ID
			resolvedID = &id
			if userName == "" {
				userName = user.DisplayName()
			}
		case errors.Is(err, store.ErrNotFound):
			p.log.Debug("unknown user on message, storing as anonymous", "room_id", roomID, "user_id", userID)
		default:
			p.log.Warn("user lookup failed, storing as anonymous", "room_id", roomID, "user_id", userID, "err", err)
		}
	}
	if userName == "" {
		userName = AnonymousName
	}

	msg := store.Message{
		RoomID:   room.ID,
		UserName: userName,
		UserID:   resolvedID,
		Content:  content,
	}
	if err := p.messages.Create(&msg); err != nil {
		return MessagePayload{}, fmt.Errorf("ingest: %w", err)
	}

	return MessagePayload{
		ID:        msg.ID,
		UserName:  msg.UserName,
		UserID:    msg.UserID,
		Content:   msg.Content,
		CreatedAt: FormatTime(msg.CreatedAt),
	}, nil
}
