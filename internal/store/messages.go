package store

import (
	"fmt"

	"gorm.io/gorm"
)

// MessageRepository provides access to message storage.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository.
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create saves a new message.
func (r *MessageRepository) Create(msg *Message) error {
	if err := r.db.Create(msg).Error; err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// ListByRoom returns all messages in a room, oldest first.
func (r *MessageRepository) ListByRoom(roomID uint) ([]Message, error) {
	var msgs []Message
	err := r.db.Where("room_id = ?", roomID).Order("created_at ASC, id ASC").Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("list messages for room %d: %w", roomID, err)
	}
	return msgs, nil
}

// LastByRoom returns up to limit of the room's most recent messages, newest
// first. Room listings embed these as a preview.
func (r *MessageRepository) LastByRoom(roomID uint, limit int) ([]Message, error) {
	var msgs []Message
	err := r.db.Where("room_id = ?", roomID).Order("created_at DESC, id DESC").Limit(limit).Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("last messages for room %d: %w", roomID, err)
	}
	return msgs, nil
}

// CountByRoom returns the number of stored messages in a room.
func (r *MessageRepository) CountByRoom(roomID uint) (int64, error) {
	var count int64
	err := r.db.Model(&Message{}).Where("room_id = ?", roomID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count messages for room %d: %w", roomID, err)
	}
	return count, nil
}
