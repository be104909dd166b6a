package models

import "time"

// Frequency is the rolling weekly attendance-goal tracker. One row per user;
// WeekStart identifies the active week (Monday at midnight). The row is
// rolled over lazily on first access in a new week, after the previous week
// is snapshotted into FrequencyHistory.
type Frequency struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	WeekStart time.Time `gorm:"type:date;not null" json:"week_start"`

	// Goal is attendances per week, always positive. AssistCount may pass
	// the goal; AchievedGoals counts lifetime weeks where the goal was met.
	Goal          int `gorm:"not null;default:3" json:"goal"`
	AssistCount   int `gorm:"not null;default:0" json:"assist_count"`
	AchievedGoals int `gorm:"not null;default:0" json:"achieved_goals"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FrequencyHistory is an archived week, written once at rollover and never
// updated afterwards.
type FrequencyHistory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index:idx_frequency_history_user_week" json:"user_id"`
	WeekStart   time.Time `gorm:"type:date;not null;index:idx_frequency_history_user_week" json:"week_start"`
	Goal        int       `gorm:"not null" json:"goal"`
	AssistCount int       `gorm:"not null" json:"assist_count"`
	GoalMet     bool      `gorm:"not null" json:"goal_met"`
	ArchivedAt  time.Time `gorm:"not null" json:"archived_at"`
}
