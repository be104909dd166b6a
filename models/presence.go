package models

import "time"

// Presence lifecycle states. A presence is created on the first in-range ping,
// promoted to CONFIRMED once the dwell requirement is met, and becomes
// terminal once EXITED. An exited presence is never reopened; a later
// in-range ping starts a fresh record.
const (
	PresenceDetecting = "DETECTING"
	PresenceConfirmed = "CONFIRMED"
	PresenceExited    = "EXITED"
)

// Presence tracks a user's detected dwell at a gym before and after it is
// confirmed as an attendance.
type Presence struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID uint   `gorm:"not null;index:idx_presence_user_gym" json:"user_id"`
	GymID  uint   `gorm:"not null;index:idx_presence_user_gym" json:"gym_id"`
	Status string `gorm:"size:16;not null;default:'DETECTING';index" json:"status"`

	FirstSeenAt time.Time  `gorm:"not null" json:"first_seen_at"`
	LastSeenAt  time.Time  `gorm:"not null" json:"last_seen_at"`
	ExitedAt    *time.Time `json:"exited_at,omitempty"`

	LastDistanceM float64 `json:"last_distance_m"`
	LastAccuracyM float64 `json:"last_accuracy_m"`
	UpdateCount   int     `gorm:"not null;default:0" json:"update_count"`

	// Set when the CONFIRMED transition produced an attendance record.
	AttendanceID *uint `json:"attendance_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Active reports whether the presence can still accept location updates.
func (p *Presence) Active() bool {
	return p.Status != PresenceExited
}

// Dwell returns the elapsed time between the first ping and now.
func (p *Presence) Dwell(now time.Time) time.Duration {
	return now.Sub(p.FirstSeenAt)
}
