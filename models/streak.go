package models

import "time"

// Streak holds the consecutive-day attendance counter for one user.
// Current only grows through confirmed attendances on consecutive calendar
// days; a single missed day can be bridged by consuming one recovery item,
// otherwise Current is archived into Last (and Max when exceeded) and
// restarts at 1.
type Streak struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;uniqueIndex" json:"user_id"`

	Current       int `gorm:"not null;default:0" json:"current"`
	Last          int `gorm:"not null;default:0" json:"last"`
	Max           int `gorm:"not null;default:0" json:"max"`
	RecoveryItems int `gorm:"not null;default:0" json:"recovery_items"`

	// LastAttendedDay is the calendar date (midnight) of the most recent
	// attendance that counted toward the streak.
	LastAttendedDay *time.Time `gorm:"type:date" json:"last_attended_day,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
