package services

import (
	"context"
	"time"

	"github.com/peakfit/peakfit/models"
	"github.com/peakfit/peakfit/store"
)

// StreakResult describes what one attendance did to the streak.
type StreakResult struct {
	Streak *models.Streak
	// Extended is false only when the attendance was a same-day repeat.
	Extended bool
	// RecoveryUsed is true when a recovery item bridged a one-miss gap.
	RecoveryUsed bool
	// Reset is true when the previous run was archived and the count
	// restarted at 1.
	Reset bool
}

// StreakEngine maintains the consecutive-day counter. Recovery items are
// consumed automatically: when a gap is detected and the user holds at least
// one item, the item bridges the gap instead of resetting the run.
type StreakEngine struct{}

// Apply evaluates one confirmed attendance dated day (midnight).
func (StreakEngine) Apply(ctx context.Context, uow store.UnitOfWork, userID uint, day time.Time) (StreakResult, error) {
	repo := uow.Streaks()

	s, err := repo.ForUser(ctx, userID)
	if err != nil {
		return StreakResult{}, err
	}
	if s == nil {
		attended := day
		s = &models.Streak{
			UserID:          userID,
			Current:         1,
			Max:             1,
			LastAttendedDay: &attended,
		}
		return StreakResult{Streak: s, Extended: true}, repo.Create(ctx, s)
	}

	res := StreakResult{Streak: s}
	switch {
	case s.LastAttendedDay == nil:
		// row existed without attendances (recovery-item purchase); start
		// the run without consuming anything
		s.Current = 1
		res.Extended = true
	default:
		switch gap := DaysBetween(*s.LastAttendedDay, day); {
		case gap == 0:
			// already counted today
			return res, nil
		case gap == 1:
			s.Current++
			res.Extended = true
		case s.RecoveryItems > 0:
			s.RecoveryItems--
			s.Current++
			res.Extended = true
			res.RecoveryUsed = true
		default:
			s.Last = s.Current
			if s.Current > s.Max {
				s.Max = s.Current
			}
			s.Current = 1
			res.Reset = true
		}
	}

	if s.Current > s.Max {
		s.Max = s.Current
	}
	attended := day
	s.LastAttendedDay = &attended
	return res, repo.Save(ctx, s)
}

// AddRecoveryItems grants purchased recovery items.
func (StreakEngine) AddRecoveryItems(ctx context.Context, uow store.UnitOfWork, userID uint, n int) (*models.Streak, error) {
	repo := uow.Streaks()
	s, err := repo.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		s = &models.Streak{UserID: userID, RecoveryItems: n}
		return s, repo.Create(ctx, s)
	}
	s.RecoveryItems += n
	return s, repo.Save(ctx, s)
}
