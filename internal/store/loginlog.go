package store

import (
	"fmt"

	"gorm.io/gorm"
)

// LoginLogRepository appends login audit records.
type LoginLogRepository struct {
	db *gorm.DB
}

// NewLoginLogRepository creates a new login log repository.
func NewLoginLogRepository(db *gorm.DB) *LoginLogRepository {
	return &LoginLogRepository{db: db}
}

// Record appends one successful-login entry for the user.
func (r *LoginLogRepository) Record(userID uint, username string) error {
	entry := LoginLog{UserID: userID, Username: username}
	if err := r.db.Create(&entry).Error; err != nil {
		return fmt.Errorf("record login for %q: %w", username, err)
	}
	return nil
}

// CountForUser returns how many logins are recorded for the user.
func (r *LoginLogRepository) CountForUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&LoginLog{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count logins for user %d: %w", userID, err)
	}
	return count, nil
}
