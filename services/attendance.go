package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/peakfit/peakfit/models"
	"github.com/peakfit/peakfit/store"
)

// AttendanceRecorder turns confirmed presences (or manual front-desk
// check-ins) into durable attendance rows, at most one per user, gym and
// calendar day.
type AttendanceRecorder struct{}

// RecordCheckIn creates the attendance for now's calendar day. The
// pre-insert lookup fails early with ErrAlreadyCheckedInToday; the unique
// index on (user, gym, day) catches the race two near-simultaneous pings can
// still produce, and is reported as the same error.
func (AttendanceRecorder) RecordCheckIn(ctx context.Context, uow store.UnitOfWork, userID, gymID uint, presenceID *uint, now time.Time) (*models.Attendance, error) {
	repo := uow.Attendances()
	day := DayOf(now)

	existing, err := repo.ForUserGymDay(ctx, userID, gymID, day)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyCheckedInToday
	}

	a := &models.Attendance{
		UserID:     userID,
		GymID:      gymID,
		Day:        day,
		CheckInAt:  now,
		Auto:       presenceID != nil,
		PresenceID: presenceID,
	}
	if err := repo.Create(ctx, a); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyCheckedInToday
		}
		return nil, err
	}
	return a, nil
}

// RecordCheckOut fills the check-out time and session duration. Idempotent:
// an attendance that already has a check-out is left as it was.
func (AttendanceRecorder) RecordCheckOut(ctx context.Context, uow store.UnitOfWork, a *models.Attendance, exitedAt time.Time) error {
	if a.CheckOutAt != nil {
		return nil
	}
	out := exitedAt
	a.CheckOutAt = &out
	a.DurationSec = int64(exitedAt.Sub(a.CheckInAt) / time.Second)
	return uow.Attendances().Save(ctx, a)
}
