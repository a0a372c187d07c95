package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// RoomRepository provides access to room storage.
type RoomRepository struct {
	db *gorm.DB
}

// NewRoomRepository creates a new room repository.
func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create saves a new room. A join key is generated when none is set, and the
// creator (when present) is added to the member list.
func (r *RoomRepository) Create(room *Room) error {
	if room.Key == "" {
		room.Key = NewJoinKey()
	}
	if err := r.db.Create(room).Error; err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	if room.CreatorID != nil {
		var creator User
		if err := r.db.First(&creator, *room.CreatorID).Error; err == nil {
			if err := r.db.Model(room).Association("Members").Append(&creator); err != nil {
				return fmt.Errorf("add creator to members: %w", err)
			}
		}
	}
	return nil
}

// GetOrCreate fetches the room with the given id, creating it with a default
// name when it does not exist yet. Messages sent into a fresh room id lazily
// materialize the room record this way.
func (r *RoomRepository) GetOrCreate(id uint) (*Room, error) {
	var room Room
	err := r.db.First(&room, id).Error
	if err == nil {
		return &room, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find room %d: %w", id, err)
	}

	room = Room{ID: id, Name: fmt.Sprintf("Room %d", id), Key: NewJoinKey()}
	if err := r.db.Create(&room).Error; err != nil {
		// Lost a create race; the room exists now.
		var existing Room
		if ferr := r.db.First(&existing, id).Error; ferr == nil {
			return &existing, nil
		}
		return nil, fmt.Errorf("create room %d: %w", id, err)
	}
	return &room, nil
}

// FindByID retrieves a room with its members preloaded.
func (r *RoomRepository) FindByID(id uint) (*Room, error) {
	var room Room
	if err := r.db.Preload("Members").First(&room, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find room %d: %w", id, err)
	}
	return &room, nil
}

// FindByKey retrieves a room by its join key, matched case-insensitively.
func (r *RoomRepository) FindByKey(key string) (*Room, error) {
	var room Room
	err := r.db.Preload("Members").Where("UPPER(key) = UPPER(?)", key).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find room by key: %w", err)
	}
	return &room, nil
}

// List returns all rooms, newest first, with members preloaded.
func (r *RoomRepository) List() ([]Room, error) {
	var rooms []Room
	if err := r.db.Preload("Members").Order("created_at DESC").Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// ListForUser returns rooms the user created or is a member of, newest first.
func (r *RoomRepository) ListForUser(userID uint) ([]Room, error) {
	var rooms []Room
	err := r.db.Preload("Members").
		Where("creator_id = ? OR id IN (?)", userID,
			r.db.Table("room_members").Select("room_id").Where("user_id = ?", userID)).
		Order("created_at DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("list rooms for user %d: %w", userID, err)
	}
	return rooms, nil
}

// AddMember adds the user to the room's member set. Adding an existing
// member is a no-op.
func (r *RoomRepository) AddMember(room *Room, user *User) error {
	if err := r.db.Model(room).Association("Members").Append(user); err != nil {
		return fmt.Errorf("add member to room %d: %w", room.ID, err)
	}
	return nil
}
