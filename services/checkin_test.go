package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakfit/peakfit/models"
	"github.com/peakfit/peakfit/store"
)

type factRecorder struct {
	facts []Fact
}

func (r *factRecorder) Publish(_ context.Context, f Fact) { r.facts = append(r.facts, f) }

func (r *factRecorder) ofType(typ string) []Fact {
	var out []Fact
	for _, f := range r.facts {
		if f.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

type engineFixture struct {
	st    store.Store
	clock *fakeClock
	facts *factRecorder
	svc   *CheckInService
	gym   *models.Gym
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	st := store.NewMemoryStore()
	clock := newFakeClock(t)
	facts := &factRecorder{}
	rewards := RewardPolicy{CheckInTokens: 10, WeeklyGoalTokens: 50, RecoveryItemPrice: 100}

	gym := &models.Gym{
		Name:               "Downtown Iron",
		Latitude:           0,
		Longitude:          0,
		RadiusM:            150,
		AutoCheckinEnabled: true,
		MinStayMinutes:     1,
	}
	require.NoError(t, st.Gyms().Create(context.Background(), gym))

	svc := NewCheckInService(st, clock, NewPresenceTracker(2*time.Hour), NewFrequencyEngine(3), facts, rewards, 50)
	return &engineFixture{st: st, clock: clock, facts: facts, svc: svc, gym: gym}
}

func TestAutoCheckInFullFlow(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t)

	// First in-range ping opens a detecting presence, nothing else.
	res, err := fx.svc.AutoCheckIn(ctx, 1, fx.gym.ID, 0.0001, 0, 10)
	require.NoError(t, err)
	require.NotNil(t, res.Presence)
	assert.Equal(t, models.PresenceDetecting, res.Presence.Status)
	assert.Nil(t, res.Attendance)
	assert.Empty(t, fx.facts.facts)

	// A ping after the minimum stay confirms the visit and runs the whole
	// rewards pipeline in one go.
	fx.clock.Advance(time.Minute)
	res, err = fx.svc.AutoCheckIn(ctx, 1, fx.gym.ID, 0.0001, 0, 10)
	require.NoError(t, err)
	require.NotNil(t, res.Attendance)
	assert.True(t, res.Attendance.Auto)
	assert.Equal(t, models.PresenceConfirmed, res.Presence.Status)
	require.NotNil(t, res.Presence.AttendanceID)
	assert.Equal(t, res.Attendance.ID, *res.Presence.AttendanceID)

	assert.Equal(t, 1, res.Streak.Current)
	assert.Equal(t, 1, res.Frequency.AssistCount)
	assert.Equal(t, 10, res.TokensCredited)
	assert.Equal(t, 10, res.Balance)

	require.Len(t, fx.facts.ofType(FactAttendanceConfirmed), 1)
	require.Len(t, fx.facts.ofType(FactStreakExtended), 1)

	// Further pings the same day keep the presence confirmed without a
	// second attendance.
	fx.clock.Advance(10 * time.Minute)
	res, err = fx.svc.AutoCheckIn(ctx, 1, fx.gym.ID, 0.0002, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, models.PresenceConfirmed, res.Presence.Status)
	assert.Len(t, fx.facts.ofType(FactAttendanceConfirmed), 1)
}

func TestAutoCheckInRejectsBadAccuracy(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t)

	_, err := fx.svc.AutoCheckIn(ctx, 1, fx.gym.ID, 0.0001, 0, 80)
	assert.ErrorIs(t, err, ErrGpsAccuracyTooLow)

	active, err := fx.st.Presences().ActiveForUserGym(ctx, 1, fx.gym.ID)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestAutoCheckInRejectsDisabledGeofence(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t)

	fx.gym.AutoCheckinEnabled = false
	require.NoError(t, fx.st.Gyms().Save(ctx, fx.gym))

	_, err := fx.svc.AutoCheckIn(ctx, 1, fx.gym.ID, 0.0001, 0, 10)
	assert.ErrorIs(t, err, ErrGeofenceDisabled)
}

func TestAutoCheckInUnknownGym(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t)

	_, err := fx.svc.AutoCheckIn(ctx, 1, 999, 0, 0, 10)
	assert.ErrorIs(t, err, ErrGymNotFound)
}

func TestAutoCheckInOutOfRangeExitsAndSurfacesError(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t)

	_, err := fx.svc.AutoCheckIn(ctx, 1, fx.gym.ID, 0.0001, 0, 10)
	require.NoError(t, err)

	// Walking away: the error surfaces, but the presence exit still commits.
	fx.clock.Advance(30 * time.Second)
	_, err = fx.svc.AutoCheckIn(ctx, 1, fx.gym.ID, 0.01, 0, 10)
	assert.ErrorIs(t, err, ErrOutOfRange)

	active, err := fx.st.Presences().ActiveForUserGym(ctx, 1, fx.gym.ID)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestConfirmPromotesAfterDwell(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t)

	_, err := fx.svc.AutoCheckIn(ctx, 1, fx.gym.ID, 0.0001, 0, 10)
	require.NoError(t, err)

	// Too early: nothing happens yet.
	res, err := fx.svc.Confirm(ctx, 1, fx.gym.ID)
	require.NoError(t, err)
	assert.Nil(t, res.Attendance)

	fx.clock.Advance(time.Minute)
	res, err = fx.svc.Confirm(ctx, 1, fx.gym.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Attendance)
	assert.Equal(t, models.PresenceConfirmed, res.Presence.Status)
}

func TestConfirmWithoutPresence(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t)

	_, err := fx.svc.Confirm(ctx, 1, fx.gym.ID)
	assert.ErrorIs(t, err, ErrNoActivePresence)
}

func TestConfirmExpiresStalePresence(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t)

	_, err := fx.svc.AutoCheckIn(ctx, 1, fx.gym.ID, 0.0001, 0, 10)
	require.NoError(t, err)

	// The client comes back hours later; the presence timed out meanwhile.
	fx.clock.Advance(3 * time.Hour)
	_, err = fx.svc.Confirm(ctx, 1, fx.gym.ID)
	assert.ErrorIs(t, err, ErrNoActivePresence)

	active, err := fx.st.Presences().ActiveForUserGym(ctx, 1, fx.gym.ID)
	require.NoError(t, err)
	assert.Nil(t, active, "the timeout exit must have committed")
}

func TestManualCheckInSharesDailyUniqueness(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t)

	res, err := fx.svc.ManualCheckIn(ctx, 1, fx.gym.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Attendance)
	assert.False(t, res.Attendance.Auto)
	assert.Equal(t, 10, res.Balance)

	_, err = fx.svc.ManualCheckIn(ctx, 1, fx.gym.ID)
	assert.ErrorIs(t, err, ErrAlreadyCheckedInToday)

	// The failed attempt must not have moved any counter.
	status, err := fx.svc.Status(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Streak.Current)
	assert.Equal(t, 1, status.Frequency.AssistCount)
	assert.Equal(t, 10, status.Balance)
}

func TestAutoAfterManualSameDayRejected(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t)

	_, err := fx.svc.ManualCheckIn(ctx, 1, fx.gym.ID)
	require.NoError(t, err)

	_, err = fx.svc.AutoCheckIn(ctx, 1, fx.gym.ID, 0.0001, 0, 10)
	require.NoError(t, err)

	fx.clock.Advance(time.Minute)
	_, err = fx.svc.AutoCheckIn(ctx, 1, fx.gym.ID, 0.0001, 0, 10)
	assert.ErrorIs(t, err, ErrAlreadyCheckedInToday)
}

func TestWeeklyGoalCreditsOnce(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t)

	var res *CheckInResult
	var err error
	for i := 0; i < 3; i++ {
		res, err = fx.svc.ManualCheckIn(ctx, 1, fx.gym.ID)
		require.NoError(t, err)
		fx.clock.Advance(24 * time.Hour)
	}

	// Third visit of the week: check-in credit plus the goal bonus.
	assert.Equal(t, 60, res.TokensCredited)
	assert.Equal(t, 80, res.Balance)
	require.Len(t, fx.facts.ofType(FactWeeklyGoalMet), 1)

	// A fourth visit does not re-trigger the bonus.
	res, err = fx.svc.ManualCheckIn(ctx, 1, fx.gym.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, res.TokensCredited)
	assert.Len(t, fx.facts.ofType(FactWeeklyGoalMet), 1)
}

func TestCheckOutStampsDuration(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t)

	_, err := fx.svc.AutoCheckIn(ctx, 1, fx.gym.ID, 0.0001, 0, 10)
	require.NoError(t, err)
	fx.clock.Advance(time.Minute)
	res, err := fx.svc.AutoCheckIn(ctx, 1, fx.gym.ID, 0.0001, 0, 10)
	require.NoError(t, err)
	require.NotNil(t, res.Attendance)

	fx.clock.Advance(45 * time.Minute)
	att, err := fx.svc.CheckOut(ctx, 1, fx.gym.ID, 0.0001, 0)
	require.NoError(t, err)
	require.NotNil(t, att)
	require.NotNil(t, att.CheckOutAt)
	assert.Equal(t, int64(45*60), att.DurationSec, "duration runs from the confirmed check-in")

	active, err := fx.st.Presences().ActiveForUserGym(ctx, 1, fx.gym.ID)
	require.NoError(t, err)
	assert.Nil(t, active)

	// Checking out again has nothing to close.
	_, err = fx.svc.CheckOut(ctx, 1, fx.gym.ID, 0.0001, 0)
	assert.ErrorIs(t, err, ErrNoActivePresence)
}

func TestCheckOutBeforeConfirmationClosesQuietly(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t)

	_, err := fx.svc.AutoCheckIn(ctx, 1, fx.gym.ID, 0.0001, 0, 10)
	require.NoError(t, err)

	att, err := fx.svc.CheckOut(ctx, 1, fx.gym.ID, 0.0001, 0)
	require.NoError(t, err)
	assert.Nil(t, att, "no attendance was produced, none to stamp")
}

func TestStatusReflectsEngineState(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t)

	_, err := fx.svc.ManualCheckIn(ctx, 1, fx.gym.ID)
	require.NoError(t, err)
	_, err = fx.svc.AutoCheckIn(ctx, 1, fx.gym.ID, 0.0001, 0, 10)
	require.NoError(t, err)

	status, err := fx.svc.Status(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Streak.Current)
	assert.Equal(t, 1, status.Frequency.AssistCount)
	assert.Equal(t, 10, status.Balance)
	require.Len(t, status.Presences, 1)
	assert.Equal(t, models.PresenceDetecting, status.Presences[0].Status)
}

func TestPurchaseRecoveryItem(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t)

	// Not enough tokens yet.
	_, _, err := fx.svc.PurchaseRecoveryItem(ctx, 1)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// Earn enough through attendances.
	for i := 0; i < 10; i++ {
		_, err := fx.svc.ManualCheckIn(ctx, 1, fx.gym.ID)
		require.NoError(t, err)
		fx.clock.Advance(24 * time.Hour)
	}

	streak, entry, err := fx.svc.PurchaseRecoveryItem(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, streak.RecoveryItems)
	assert.Equal(t, -100, entry.Delta)
	assert.Equal(t, models.LedgerReasonRecoveryItem, entry.Reason)

	status, err := fx.svc.Status(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, entry.BalanceAfter, status.Balance)
}
