package models

import "time"

// Streak holds the per-user streak counters. One row per user, mutated only
// through the streak engine. Version backs the optimistic read-modify-write:
// saves carry the version that was read and bump it by one.
//
// Reverse counts the consecutive missed days that preceded the current run;
// it is cleared when the run is extended. Both counters are zero only before
// the first accepted check-in.
type Streak struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	Current       int        `gorm:"default:0" json:"current"`
	Reverse       int        `gorm:"default:0" json:"reverse"`
	LastCheckDate *time.Time `gorm:"type:date" json:"last_check_date"`
	Version       int64      `gorm:"default:0" json:"-"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
