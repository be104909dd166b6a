package store

import (
	"context"
	"time"

	"github.com/peakfit/peakfit/models"
)

// Store groups the per-aggregate repositories and runs units of work. A unit
// of work handed to Atomically sees a single transactional view: either every
// write inside the closure commits or none of them do.
//
// Lookup methods return (nil, nil) when no row exists; errors are reserved
// for storage failures.
type Store interface {
	UnitOfWork

	// Atomically runs fn inside one transaction. Returning an error from fn
	// rolls everything back and surfaces that same error.
	Atomically(ctx context.Context, fn func(uow UnitOfWork) error) error
}

// UnitOfWork exposes the repositories bound to one transactional view.
type UnitOfWork interface {
	Gyms() GymRepository
	Presences() PresenceRepository
	Attendances() AttendanceRepository
	Frequencies() FrequencyRepository
	Streaks() StreakRepository
	Ledger() LedgerRepository
}

// GymRepository reads and writes gym directory entries, including the
// geofence configuration consumed by the check-in engine.
type GymRepository interface {
	ByID(ctx context.Context, id uint) (*models.Gym, error)
	List(ctx context.Context) ([]models.Gym, error)
	Create(ctx context.Context, gym *models.Gym) error
	Save(ctx context.Context, gym *models.Gym) error
}

// PresenceRepository stores presence records. ActiveForUserGym returns the
// most recent non-exited presence for the pair, locking it for update when
// called inside a transaction.
type PresenceRepository interface {
	ActiveForUserGym(ctx context.Context, userID, gymID uint) (*models.Presence, error)
	ActiveForUser(ctx context.Context, userID uint) ([]models.Presence, error)
	Create(ctx context.Context, p *models.Presence) error
	Save(ctx context.Context, p *models.Presence) error
}

// AttendanceRepository stores attendance records. Day values are calendar
// dates at midnight.
type AttendanceRepository interface {
	ByID(ctx context.Context, id uint) (*models.Attendance, error)
	ForUserGymDay(ctx context.Context, userID, gymID uint, day time.Time) (*models.Attendance, error)
	ListForUser(ctx context.Context, userID uint, limit int) ([]models.Attendance, error)
	Create(ctx context.Context, a *models.Attendance) error
	Save(ctx context.Context, a *models.Attendance) error
}

// FrequencyRepository stores the rolling weekly tracker and its history.
type FrequencyRepository interface {
	ForUser(ctx context.Context, userID uint) (*models.Frequency, error)
	Create(ctx context.Context, f *models.Frequency) error
	Save(ctx context.Context, f *models.Frequency) error
	Archive(ctx context.Context, h *models.FrequencyHistory) error
	History(ctx context.Context, userID uint, limit int) ([]models.FrequencyHistory, error)
}

// StreakRepository stores per-user streak counters.
type StreakRepository interface {
	ForUser(ctx context.Context, userID uint) (*models.Streak, error)
	Create(ctx context.Context, s *models.Streak) error
	Save(ctx context.Context, s *models.Streak) error
}

// LedgerRepository stores the append-only token ledger. Append is insert
// only; there is deliberately no update or delete.
type LedgerRepository interface {
	Latest(ctx context.Context, userID uint) (*models.TokenLedgerEntry, error)
	RefExists(ctx context.Context, userID uint, refType string, refID uint, reason string) (bool, error)
	Append(ctx context.Context, e *models.TokenLedgerEntry) error
	List(ctx context.Context, userID uint, limit, offset int) ([]models.TokenLedgerEntry, error)
}
