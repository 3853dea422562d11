package models

import "time"

// CheckIn is the append-only audit record of one accepted check-in. The
// composite unique index enforces at most one row per user per local date,
// which is what makes re-delivered events idempotent at the storage layer.
type CheckIn struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"uniqueIndex:idx_checkins_user_date;not null" json:"user_id"`
	LocalDate  time.Time `gorm:"uniqueIndex:idx_checkins_user_date;type:date;not null" json:"local_date"`
	SourceTime time.Time `json:"source_time"`
	Marker     string    `gorm:"size:16" json:"marker"`
	CreatedAt  time.Time `json:"created_at"`
}
