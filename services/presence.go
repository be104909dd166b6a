package services

import (
	"context"
	"time"

	"github.com/peakfit/peakfit/models"
	"github.com/peakfit/peakfit/store"
)

// PresenceTracker advances the per-(user, gym) presence state machine from
// location pings. It never creates attendances itself; the orchestrator
// performs the CONFIRMED handoff so everything lands in one transaction.
type PresenceTracker struct {
	// StaleAfter is how long a presence may go without updates before an
	// evaluation pass exits it.
	StaleAfter time.Duration
}

// NewPresenceTracker applies the default two hour stale timeout when
// staleAfter is zero.
func NewPresenceTracker(staleAfter time.Duration) *PresenceTracker {
	if staleAfter <= 0 {
		staleAfter = 2 * time.Hour
	}
	return &PresenceTracker{StaleAfter: staleAfter}
}

// Observe processes one scored ping. It may create a fresh presence, update
// the active one, or exit it, and returns the presence that remains relevant
// (nil when the ping was out of range with nothing open). Pings older than
// the stored last-seen are ignored.
func (t *PresenceTracker) Observe(ctx context.Context, uow store.UnitOfWork, userID, gymID uint, v Verdict, accuracyM float64, now time.Time) (*models.Presence, error) {
	repo := uow.Presences()
	p, err := repo.ActiveForUserGym(ctx, userID, gymID)
	if err != nil {
		return nil, err
	}

	if p != nil && t.stale(p, now) {
		if err := t.exit(ctx, repo, p, now); err != nil {
			return nil, err
		}
		p = nil
	}

	if !v.OK() {
		// An out-of-range ping closes the open presence; accuracy or
		// config failures leave it untouched.
		if p != nil && v.Enabled && v.AccuracyAcceptable && !v.InRange {
			if err := t.exit(ctx, repo, p, now); err != nil {
				return nil, err
			}
			return p, nil
		}
		return p, nil
	}

	if p == nil {
		p = &models.Presence{
			UserID:        userID,
			GymID:         gymID,
			Status:        models.PresenceDetecting,
			FirstSeenAt:   now,
			LastSeenAt:    now,
			LastDistanceM: v.DistanceM,
			LastAccuracyM: accuracyM,
			UpdateCount:   1,
		}
		return p, repo.Create(ctx, p)
	}

	// last-seen is monotonic
	if now.Before(p.LastSeenAt) {
		return p, nil
	}

	p.LastSeenAt = now
	p.LastDistanceM = v.DistanceM
	p.LastAccuracyM = accuracyM
	p.UpdateCount++
	return p, repo.Save(ctx, p)
}

// DueForConfirmation reports whether a detecting presence has dwelled long
// enough to be promoted.
func (t *PresenceTracker) DueForConfirmation(p *models.Presence, gf GeofenceConfig, now time.Time) bool {
	if p == nil || p.Status != models.PresenceDetecting {
		return false
	}
	return p.Dwell(now) >= time.Duration(gf.MinStayMinutes)*time.Minute
}

// Exit closes the presence at the given instant. Exited presences are
// terminal; calling Exit on one is a no-op.
func (t *PresenceTracker) Exit(ctx context.Context, uow store.UnitOfWork, p *models.Presence, now time.Time) error {
	if !p.Active() {
		return nil
	}
	return t.exit(ctx, uow.Presences(), p, now)
}

func (t *PresenceTracker) stale(p *models.Presence, now time.Time) bool {
	return now.Sub(p.LastSeenAt) > t.StaleAfter
}

func (t *PresenceTracker) exit(ctx context.Context, repo store.PresenceRepository, p *models.Presence, now time.Time) error {
	exited := now
	p.Status = models.PresenceExited
	p.ExitedAt = &exited
	return repo.Save(ctx, p)
}
