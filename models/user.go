package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a bot user. Created on first interaction, keyed by the
// Telegram account id.
type User struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	TelegramID       int64          `gorm:"uniqueIndex;not null" json:"telegram_id"`
	Username         string         `gorm:"size:64" json:"username"`
	FirstName        string         `gorm:"size:128" json:"first_name"`
	Language         string         `gorm:"size:8;default:en" json:"language"`
	Timezone         string         `gorm:"size:64" json:"timezone"`
	ReminderTime     string         `gorm:"size:8" json:"reminder_time"` // "HH:MM" in the user's zone
	RemindersEnabled bool           `gorm:"default:true" json:"reminders_enabled"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
