// Package store persists rooms, messages, users, and login audit records
// using GORM over SQLite. The real-time core treats this package as an
// external collaborator: it creates and queries records but never owns
// liveness state.
package store

import "time"

// User is a registered account. Passwords are stored as bcrypt hashes.
type User struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	Username     string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"size:128;not null" json:"-"`
	FirstName    string    `gorm:"size:150" json:"first_name"`
	LastName     string    `gorm:"size:150" json:"last_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// DisplayName returns the name shown to other participants: "First Last"
// when set, otherwise the username.
func (u *User) DisplayName() string {
	full := u.FirstName
	if u.LastName != "" {
		if full != "" {
			full += " "
		}
		full += u.LastName
	}
	if full != "" {
		return full
	}
	return u.Username
}

// Room is a named channel grouping participants and their message history.
// Key is the shareable join code handed to invited users.
type Room struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	Key       string    `gorm:"size:16;uniqueIndex" json:"key"`
	CreatorID *uint     `json:"creator_id"`
	Members   []User    `gorm:"many2many:room_members" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is one persisted chat message. UserName captures the display name
// at time of send; UserID is nil for anonymous senders.
type Message struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	RoomID    uint      `gorm:"index;not null" json:"-"`
	UserName  string    `gorm:"size:150;not null" json:"user_name"`
	UserID    *uint     `json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginLog records one successful login for auditing.
type LoginLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Username  string    `gorm:"size:150;not null" json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
