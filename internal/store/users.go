package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrUsernameTaken is returned when registering with an existing username.
var ErrUsernameTaken = errors.New("username already taken")

// UserRepository provides access to user storage.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create saves a new user. Returns ErrUsernameTaken when the username is
// already registered.
func (r *UserRepository) Create(user *User) error {
	var count int64
	if err := r.db.Model(&User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if count > 0 {
		return ErrUsernameTaken
	}
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByID retrieves a user by id.
func (r *UserRepository) FindByID(id uint) (*User, error) {
	var user User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return &user, nil
}

// FindByUsername retrieves a user by username.
func (r *UserRepository) FindByUsername(username string) (*User, error) {
	var user User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user %q: %w", username, err)
	}
	return &user, nil
}
