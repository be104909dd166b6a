package services

import (
	"context"
	"time"

	"github.com/peakfit/peakfit/models"
	"github.com/peakfit/peakfit/store"
)

// RewardPolicy sets how many tokens the ledger credits per event and what a
// recovery item costs.
type RewardPolicy struct {
	CheckInTokens     int
	WeeklyGoalTokens  int
	RecoveryItemPrice int
}

// CheckInResult is what AutoCheckIn and Confirm hand back to the API layer.
// Attendance, Streak and Frequency are nil while the presence is still
// detecting.
type CheckInResult struct {
	Presence       *models.Presence
	Attendance     *models.Attendance
	Streak         *models.Streak
	Frequency      *models.Frequency
	TokensCredited int
	Balance        int
}

// StatusResult is the read model for the authenticated user.
type StatusResult struct {
	Streak    *models.Streak
	Frequency *models.Frequency
	Balance   int
	Presences []models.Presence
}

// CheckInService orchestrates the attendance pipeline: geofence verdict,
// presence transition, and, on confirmation, the attendance + frequency +
// streak + ledger writes as one all-or-nothing transaction. Post-commit
// facts are published only after the transaction committed.
type CheckInService struct {
	store    store.Store
	clock    Clock
	tracker  *PresenceTracker
	recorder AttendanceRecorder
	streaks  StreakEngine
	freq     *FrequencyEngine
	ledger   TokenLedger
	facts    FactPublisher
	rewards  RewardPolicy

	accuracyCeilingM float64
}

// NewCheckInService wires the engine. A nil facts publisher is replaced by a
// no-op one.
func NewCheckInService(st store.Store, clock Clock, tracker *PresenceTracker, freq *FrequencyEngine, facts FactPublisher, rewards RewardPolicy, accuracyCeilingM float64) *CheckInService {
	if clock == nil {
		clock = SystemClock()
	}
	if tracker == nil {
		tracker = NewPresenceTracker(0)
	}
	if freq == nil {
		freq = NewFrequencyEngine(0)
	}
	if facts == nil {
		facts = NopFactPublisher{}
	}
	return &CheckInService{
		store:            st,
		clock:            clock,
		tracker:          tracker,
		freq:             freq,
		facts:            facts,
		rewards:          rewards,
		accuracyCeilingM: accuracyCeilingM,
	}
}

// AutoCheckIn processes one location ping from the mobile client. A rejected
// verdict surfaces as a business error; an out-of-range ping still commits
// the presence exit it causes before the error is returned.
func (s *CheckInService) AutoCheckIn(ctx context.Context, userID, gymID uint, lat, lon, accuracyM float64) (*CheckInResult, error) {
	var (
		result    CheckInResult
		rejection error
		pending   []Fact
	)

	err := s.store.Atomically(ctx, func(uow store.UnitOfWork) error {
		gym, err := uow.Gyms().ByID(ctx, gymID)
		if err != nil {
			return err
		}
		if gym == nil {
			return ErrGymNotFound
		}

		gf := geofenceOf(gym)
		now := s.clock.Now()
		v := EvaluateGeofence(lat, lon, accuracyM, gf, s.accuracyCeilingM)

		if rejection = v.Reject(); rejection != nil {
			// Let the tracker commit the exit an out-of-range ping causes,
			// then surface the rejection after the transaction.
			p, err := s.tracker.Observe(ctx, uow, userID, gymID, v, accuracyM, now)
			if err != nil {
				return err
			}
			result.Presence = p
			return nil
		}

		p, err := s.tracker.Observe(ctx, uow, userID, gymID, v, accuracyM, now)
		if err != nil {
			return err
		}
		result.Presence = p

		if !s.tracker.DueForConfirmation(p, gf, now) {
			return nil
		}
		pending, err = s.confirm(ctx, uow, p, now, &result)
		return err
	})
	if err != nil {
		return nil, err
	}
	if rejection != nil {
		return nil, rejection
	}

	s.publish(ctx, pending)
	return &result, nil
}

// Confirm re-evaluates an open presence without a new ping. The mobile
// client calls it when the dwell timer fires.
func (s *CheckInService) Confirm(ctx context.Context, userID, gymID uint) (*CheckInResult, error) {
	var (
		result  CheckInResult
		expired bool
		pending []Fact
	)

	err := s.store.Atomically(ctx, func(uow store.UnitOfWork) error {
		gym, err := uow.Gyms().ByID(ctx, gymID)
		if err != nil {
			return err
		}
		if gym == nil {
			return ErrGymNotFound
		}

		p, err := uow.Presences().ActiveForUserGym(ctx, userID, gymID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrNoActivePresence
		}

		now := s.clock.Now()
		if now.Sub(p.LastSeenAt) > s.tracker.StaleAfter {
			// commit the timeout exit, then report nothing to confirm
			expired = true
			return s.tracker.Exit(ctx, uow, p, now)
		}

		result.Presence = p
		if !s.tracker.DueForConfirmation(p, geofenceOf(gym), now) {
			return nil
		}
		pending, err = s.confirm(ctx, uow, p, now, &result)
		return err
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, ErrNoActivePresence
	}

	s.publish(ctx, pending)
	return &result, nil
}

// ManualCheckIn records a front-desk attendance. It shares the daily
// uniqueness gate and the rewards pipeline with the geofence path, but skips
// presence tracking entirely.
func (s *CheckInService) ManualCheckIn(ctx context.Context, userID, gymID uint) (*CheckInResult, error) {
	var (
		result  CheckInResult
		pending []Fact
	)

	err := s.store.Atomically(ctx, func(uow store.UnitOfWork) error {
		gym, err := uow.Gyms().ByID(ctx, gymID)
		if err != nil {
			return err
		}
		if gym == nil {
			return ErrGymNotFound
		}

		now := s.clock.Now()
		att, err := s.recorder.RecordCheckIn(ctx, uow, userID, gymID, nil, now)
		if err != nil {
			return err
		}
		result.Attendance = att
		pending, err = s.applyRewards(ctx, uow, att, &result)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, pending)
	return &result, nil
}

// CheckOut closes the user's open presence at the gym and, when an
// attendance was produced, stamps its check-out time and duration.
func (s *CheckInService) CheckOut(ctx context.Context, userID, gymID uint, lat, lon float64) (*models.Attendance, error) {
	var att *models.Attendance

	err := s.store.Atomically(ctx, func(uow store.UnitOfWork) error {
		gym, err := uow.Gyms().ByID(ctx, gymID)
		if err != nil {
			return err
		}
		if gym == nil {
			return ErrGymNotFound
		}

		p, err := uow.Presences().ActiveForUserGym(ctx, userID, gymID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrNoActivePresence
		}

		now := s.clock.Now()
		p.LastDistanceM = DistanceMeters(lat, lon, gym.Latitude, gym.Longitude)
		if err := s.tracker.Exit(ctx, uow, p, now); err != nil {
			return err
		}

		if p.AttendanceID == nil {
			return nil
		}
		att, err = uow.Attendances().ByID(ctx, *p.AttendanceID)
		if err != nil || att == nil {
			return err
		}
		return s.recorder.RecordCheckOut(ctx, uow, att, now)
	})
	if err != nil {
		return nil, err
	}
	return att, nil
}

// Status returns the user's current streak, weekly frequency, token balance
// and open presences. The frequency read performs the lazy week rollover, so
// it runs in a transaction too.
func (s *CheckInService) Status(ctx context.Context, userID uint) (*StatusResult, error) {
	var res StatusResult

	err := s.store.Atomically(ctx, func(uow store.UnitOfWork) error {
		now := s.clock.Now()

		streak, err := uow.Streaks().ForUser(ctx, userID)
		if err != nil {
			return err
		}
		res.Streak = streak

		freq, err := s.freq.Current(ctx, uow, userID, now)
		if err != nil {
			return err
		}
		res.Frequency = freq

		balance, err := s.ledger.Balance(ctx, uow, userID)
		if err != nil {
			return err
		}
		res.Balance = balance

		presences, err := uow.Presences().ActiveForUser(ctx, userID)
		if err != nil {
			return err
		}
		res.Presences = presences
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// PurchaseRecoveryItem debits the item price from the token ledger and
// grants one recovery item, atomically.
func (s *CheckInService) PurchaseRecoveryItem(ctx context.Context, userID uint) (*models.Streak, *models.TokenLedgerEntry, error) {
	var (
		streak *models.Streak
		entry  *models.TokenLedgerEntry
	)

	err := s.store.Atomically(ctx, func(uow store.UnitOfWork) error {
		var err error
		entry, err = s.ledger.Debit(ctx, uow, userID, s.rewards.RecoveryItemPrice, models.LedgerReasonRecoveryItem, nil)
		if err != nil {
			return err
		}
		streak, err = s.streaks.AddRecoveryItems(ctx, uow, userID, 1)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return streak, entry, nil
}

// confirm performs the CONFIRMED handoff: attendance insert, presence link,
// then the shared rewards pipeline.
func (s *CheckInService) confirm(ctx context.Context, uow store.UnitOfWork, p *models.Presence, now time.Time, result *CheckInResult) ([]Fact, error) {
	att, err := s.recorder.RecordCheckIn(ctx, uow, p.UserID, p.GymID, &p.ID, now)
	if err != nil {
		return nil, err
	}

	p.Status = models.PresenceConfirmed
	p.AttendanceID = &att.ID
	if err := uow.Presences().Save(ctx, p); err != nil {
		return nil, err
	}

	result.Attendance = att
	return s.applyRewards(ctx, uow, att, result)
}

// applyRewards threads one new attendance through the frequency counter, the
// streak engine and the token ledger. Runs inside the caller's transaction.
func (s *CheckInService) applyRewards(ctx context.Context, uow store.UnitOfWork, att *models.Attendance, result *CheckInResult) ([]Fact, error) {
	now := att.CheckInAt

	freq, goalJustMet, err := s.freq.Apply(ctx, uow, att.UserID, att.Day)
	if err != nil {
		return nil, err
	}
	result.Frequency = freq

	streakRes, err := s.streaks.Apply(ctx, uow, att.UserID, att.Day)
	if err != nil {
		return nil, err
	}
	result.Streak = streakRes.Streak

	credited := 0
	entry, err := s.ledger.Credit(ctx, uow, att.UserID, s.rewards.CheckInTokens,
		models.LedgerReasonCheckIn, &LedgerRef{Type: models.LedgerRefAttendance, ID: att.ID})
	if err != nil {
		return nil, err
	}
	credited += s.rewards.CheckInTokens

	if goalJustMet {
		// referencing the attendance that met the goal keeps the
		// idempotency key unique across weeks
		entry, err = s.ledger.Credit(ctx, uow, att.UserID, s.rewards.WeeklyGoalTokens,
			models.LedgerReasonWeeklyGoal, &LedgerRef{Type: models.LedgerRefAttendance, ID: att.ID})
		if err != nil {
			return nil, err
		}
		credited += s.rewards.WeeklyGoalTokens
	}

	result.TokensCredited = credited
	result.Balance = entry.BalanceAfter

	facts := []Fact{{
		Type:       FactAttendanceConfirmed,
		UserID:     att.UserID,
		GymID:      att.GymID,
		Streak:     streakRes.Streak.Current,
		Tokens:     credited,
		OccurredAt: now,
	}}
	if goalJustMet {
		facts = append(facts, Fact{
			Type:       FactWeeklyGoalMet,
			UserID:     att.UserID,
			GymID:      att.GymID,
			Tokens:     s.rewards.WeeklyGoalTokens,
			OccurredAt: now,
		})
	}
	if streakRes.Extended {
		facts = append(facts, Fact{
			Type:       FactStreakExtended,
			UserID:     att.UserID,
			Streak:     streakRes.Streak.Current,
			OccurredAt: now,
		})
	}
	return facts, nil
}

func (s *CheckInService) publish(ctx context.Context, facts []Fact) {
	for _, f := range facts {
		s.facts.Publish(ctx, f)
	}
}

func geofenceOf(gym *models.Gym) GeofenceConfig {
	return GeofenceConfig{
		Latitude:           gym.Latitude,
		Longitude:          gym.Longitude,
		RadiusM:            gym.RadiusM,
		AutoCheckinEnabled: gym.AutoCheckinEnabled,
		MinStayMinutes:     gym.MinStayMinutes,
	}
}
