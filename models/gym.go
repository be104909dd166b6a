package models

import (
	"time"

	"gorm.io/gorm"
)

// Gym is a directory entry plus the geofence configuration the auto check-in
// engine reads. The geofence fields are read-mostly: they change through the
// directory surface, never through the check-in path.
type Gym struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Name        string  `gorm:"size:128;not null" json:"name"`
	Description string  `gorm:"size:2048" json:"description"`
	Address     string  `gorm:"size:255" json:"address"`
	Latitude    float64 `gorm:"not null" json:"latitude"`
	Longitude   float64 `gorm:"not null" json:"longitude"`

	// Geofence configuration. RadiusM must be positive, MinStayMinutes
	// may be zero (confirm on first ping).
	RadiusM            float64 `gorm:"not null;default:150" json:"radius_m"`
	AutoCheckinEnabled bool    `gorm:"not null;default:true" json:"auto_checkin_enabled"`
	MinStayMinutes     int     `gorm:"not null;default:15" json:"min_stay_minutes"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
