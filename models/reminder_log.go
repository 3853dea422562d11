package models

import "time"

// Reminder kinds recorded in ReminderLog.
const (
	ReminderKindMissedStreak = "missed_streak"
	ReminderKindDailyNudge   = "daily_nudge"
)

// ReminderLog is the durable idempotency record for reminder delivery: the
// unique index guarantees at most one reminder of each kind per user per
// local date, across sweeps and across process restarts.
type ReminderLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_reminders_user_date_kind;not null" json:"user_id"`
	LocalDate time.Time `gorm:"uniqueIndex:idx_reminders_user_date_kind;type:date;not null" json:"local_date"`
	Kind      string    `gorm:"uniqueIndex:idx_reminders_user_date_kind;size:32;not null" json:"kind"`
	SentAt    time.Time `json:"sent_at"`
}
