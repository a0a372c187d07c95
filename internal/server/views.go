package server

import (
	"github.com/parlorchat/parlor/internal/chat"
	"github.com/parlorchat/parlor/internal/store"
)

// roomLastMessages is how many recent messages a room listing embeds.
const roomLastMessages = 10

type memberView struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type roomView struct {
	ID           uint                  `json:"id"`
	Name         string                `json:"name"`
	CreatedAt    string                `json:"created_at"`
	Key          string                `json:"key"`
	CreatorID    *uint                 `json:"creator_id"`
	Members      []memberView          `json:"members"`
	LastMessages []chat.MessagePayload `json:"last_messages"`
}

type userView struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type loginResponse struct {
	userView
	Token string `json:"token"`
}

type onlineUserView struct {
	UserID   uint   `json:"user_id"`
	UserName string `json:"user_name"`
	LastSeen string `json:"last_seen"`
}

type onlineResponse struct {
	Count int              `json:"count"`
	Users []onlineUserView `json:"users"`
}

func messageView(msg store.Message) chat.MessagePayload {
	return chat.MessagePayload{
		ID:        msg.ID,
		UserName:  msg.UserName,
		UserID:    msg.UserID,
		Content:   msg.Content,
		CreatedAt: chat.FormatTime(msg.CreatedAt),
	}
}

func (s *Server) roomView(room *store.Room) roomView {
	members := make([]memberView, 0, len(room.Members))
	for _, m := range room.Members {
		members = append(members, memberView{
			ID:        m.ID,
			Username:  m.Username,
			FirstName: m.FirstName,
			LastName:  m.LastName,
		})
	}

	last := make([]chat.MessagePayload, 0, roomLastMessages)
	if msgs, err := s.messages.LastByRoom(room.ID, roomLastMessages); err == nil {
		for _, m := range msgs {
			last = append(last, messageView(m))
		}
	} else {
		s.log.Warn("load last messages", "room_id", room.ID, "err", err)
	}

	return roomView{
		ID:           room.ID,
		Name:         room.Name,
		CreatedAt:    chat.FormatTime(room.CreatedAt),
		Key:          room.Key,
		CreatorID:    room.CreatorID,
		Members:      members,
		LastMessages: last,
	}
}
