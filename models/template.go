package models

import "time"

// Template kinds.
const (
	TemplateKindReward  = "reward"
	TemplateKindWarning = "warning"
)

// MessageTemplate stores the streak reward / warning texts picked by day
// thresholds (rewards at 1/7/30 days, warnings at 1/3/5/7/30 missed days).
// Admin-provided HTML is sanitized before it reaches this table.
type MessageTemplate struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Kind          string    `gorm:"uniqueIndex:idx_templates_kind_threshold;size:16;not null" json:"kind"`
	ThresholdDays int       `gorm:"uniqueIndex:idx_templates_kind_threshold;not null" json:"threshold_days"`
	TextEN        string    `gorm:"type:text" json:"text_en"`
	TextAR        string    `gorm:"type:text" json:"text_ar"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
