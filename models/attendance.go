package models

import "time"

// Attendance is the durable record of one visit. The unique index over
// (user_id, gym_id, day) is the authoritative guard against double check-ins;
// application-level checks exist only to fail earlier with a nicer error.
type Attendance struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;uniqueIndex:idx_attendance_user_gym_day,priority:1" json:"user_id"`
	GymID  uint `gorm:"not null;uniqueIndex:idx_attendance_user_gym_day,priority:2" json:"gym_id"`

	// Day is the calendar date of the visit at midnight, derived from the
	// check-in instant.
	Day time.Time `gorm:"type:date;not null;uniqueIndex:idx_attendance_user_gym_day,priority:3" json:"day"`

	CheckInAt   time.Time  `gorm:"not null" json:"check_in_at"`
	CheckOutAt  *time.Time `json:"check_out_at,omitempty"`
	DurationSec int64      `gorm:"not null;default:0" json:"duration_sec"`

	// Auto distinguishes geofence check-ins from manual ones entered at the
	// front desk. PresenceID links back to the originating presence for auto
	// check-ins.
	Auto       bool  `gorm:"not null;default:false" json:"auto"`
	PresenceID *uint `json:"presence_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
