package services

import (
	"context"
	"time"

	"github.com/peakfit/peakfit/models"
	"github.com/peakfit/peakfit/store"
)

// FrequencyEngine maintains the rolling weekly attendance-goal counter.
// Rollover is lazy: the first access in a new week snapshots the old week
// into history and resets the active row.
type FrequencyEngine struct {
	// DefaultGoal seeds new trackers; always positive.
	DefaultGoal int
}

// NewFrequencyEngine defaults the weekly goal to 3 visits.
func NewFrequencyEngine(defaultGoal int) *FrequencyEngine {
	if defaultGoal <= 0 {
		defaultGoal = 3
	}
	return &FrequencyEngine{DefaultGoal: defaultGoal}
}

// Apply counts one confirmed attendance on the given day. It returns the
// updated tracker and whether this attendance met the weekly goal for the
// first time this week (the fact the ledger credits).
func (e *FrequencyEngine) Apply(ctx context.Context, uow store.UnitOfWork, userID uint, day time.Time) (*models.Frequency, bool, error) {
	f, err := e.current(ctx, uow, userID, day)
	if err != nil {
		return nil, false, err
	}

	f.AssistCount++
	goalJustMet := f.AssistCount == f.Goal
	if goalJustMet {
		f.AchievedGoals++
	}
	return f, goalJustMet, uow.Frequencies().Save(ctx, f)
}

// Current returns the tracker for the week containing now, performing the
// lazy rollover if needed. Used by read paths so status queries see the
// fresh week even before the first attendance lands in it.
func (e *FrequencyEngine) Current(ctx context.Context, uow store.UnitOfWork, userID uint, now time.Time) (*models.Frequency, error) {
	return e.current(ctx, uow, userID, now)
}

func (e *FrequencyEngine) current(ctx context.Context, uow store.UnitOfWork, userID uint, at time.Time) (*models.Frequency, error) {
	repo := uow.Frequencies()
	weekStart := WeekStartOf(at)

	f, err := repo.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		f = &models.Frequency{
			UserID:    userID,
			WeekStart: weekStart,
			Goal:      e.DefaultGoal,
		}
		return f, repo.Create(ctx, f)
	}

	if f.WeekStart.Equal(weekStart) {
		return f, nil
	}

	// Week boundary crossed: archive the stale week, then reuse the row.
	h := &models.FrequencyHistory{
		UserID:      f.UserID,
		WeekStart:   f.WeekStart,
		Goal:        f.Goal,
		AssistCount: f.AssistCount,
		GoalMet:     f.AssistCount >= f.Goal,
		ArchivedAt:  at,
	}
	if err := repo.Archive(ctx, h); err != nil {
		return nil, err
	}

	f.WeekStart = weekStart
	f.AssistCount = 0
	return f, repo.Save(ctx, f)
}
