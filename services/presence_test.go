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

var testFence = GeofenceConfig{
	Latitude:           0,
	Longitude:          0,
	RadiusM:            150,
	AutoCheckinEnabled: true,
	MinStayMinutes:     15,
}

func inRangeVerdict() Verdict {
	return Verdict{DistanceM: 20, InRange: true, AccuracyAcceptable: true, Enabled: true}
}

func outOfRangeVerdict() Verdict {
	return Verdict{DistanceM: 900, InRange: false, AccuracyAcceptable: true, Enabled: true}
}

func TestObserveCreatesDetectingPresence(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	clock := newFakeClock(t)
	tracker := NewPresenceTracker(0)

	p, err := tracker.Observe(ctx, st, 1, 1, inRangeVerdict(), 10, clock.Now())
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, models.PresenceDetecting, p.Status)
	assert.Equal(t, clock.Now(), p.FirstSeenAt)
	assert.Equal(t, clock.Now(), p.LastSeenAt)
	assert.Equal(t, 1, p.UpdateCount)
	assert.Equal(t, 10.0, p.LastAccuracyM)
}

func TestObserveUpdatesExistingPresence(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	clock := newFakeClock(t)
	tracker := NewPresenceTracker(0)

	first, err := tracker.Observe(ctx, st, 1, 1, inRangeVerdict(), 10, clock.Now())
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)
	second, err := tracker.Observe(ctx, st, 1, 1, inRangeVerdict(), 8, clock.Now())
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.FirstSeenAt, second.FirstSeenAt)
	assert.Equal(t, clock.Now(), second.LastSeenAt)
	assert.Equal(t, 2, second.UpdateCount)
	assert.Equal(t, 8.0, second.LastAccuracyM)
}

func TestObserveIgnoresOlderPing(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	clock := newFakeClock(t)
	tracker := NewPresenceTracker(0)

	_, err := tracker.Observe(ctx, st, 1, 1, inRangeVerdict(), 10, clock.Now())
	require.NoError(t, err)

	// A delayed ping stamped before the stored last-seen must not move it back.
	p, err := tracker.Observe(ctx, st, 1, 1, inRangeVerdict(), 5, clock.Now().Add(-10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), p.LastSeenAt)
	assert.Equal(t, 1, p.UpdateCount)
}

func TestObserveOutOfRangeExitsPresence(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	clock := newFakeClock(t)
	tracker := NewPresenceTracker(0)

	_, err := tracker.Observe(ctx, st, 1, 1, inRangeVerdict(), 10, clock.Now())
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)
	p, err := tracker.Observe(ctx, st, 1, 1, outOfRangeVerdict(), 10, clock.Now())
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, models.PresenceExited, p.Status)
	require.NotNil(t, p.ExitedAt)
	assert.Equal(t, clock.Now(), *p.ExitedAt)

	active, err := st.Presences().ActiveForUserGym(ctx, 1, 1)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestObserveBadAccuracyLeavesPresenceUntouched(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	clock := newFakeClock(t)
	tracker := NewPresenceTracker(0)

	_, err := tracker.Observe(ctx, st, 1, 1, inRangeVerdict(), 10, clock.Now())
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)
	v := Verdict{DistanceM: 900, InRange: false, AccuracyAcceptable: false, Enabled: true}
	p, err := tracker.Observe(ctx, st, 1, 1, v, 120, clock.Now())
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, models.PresenceDetecting, p.Status, "untrustworthy reading must not exit the presence")
}

func TestObserveStalePresenceIsExitedAndReplaced(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	clock := newFakeClock(t)
	tracker := NewPresenceTracker(30 * time.Minute)

	first, err := tracker.Observe(ctx, st, 1, 1, inRangeVerdict(), 10, clock.Now())
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	second, err := tracker.Observe(ctx, st, 1, 1, inRangeVerdict(), 10, clock.Now())
	require.NoError(t, err)
	require.NotNil(t, second)

	assert.NotEqual(t, first.ID, second.ID, "stale presence must not be reused")
	assert.Equal(t, models.PresenceDetecting, second.Status)
	assert.Equal(t, clock.Now(), second.FirstSeenAt, "dwell restarts with the fresh presence")
}

func TestDueForConfirmation(t *testing.T) {
	clock := newFakeClock(t)
	tracker := NewPresenceTracker(0)

	p := &models.Presence{
		Status:      models.PresenceDetecting,
		FirstSeenAt: clock.Now(),
		LastSeenAt:  clock.Now(),
	}

	assert.False(t, tracker.DueForConfirmation(p, testFence, clock.Now()))
	assert.False(t, tracker.DueForConfirmation(p, testFence, clock.Now().Add(14*time.Minute)))
	assert.True(t, tracker.DueForConfirmation(p, testFence, clock.Now().Add(15*time.Minute)))

	confirmed := &models.Presence{Status: models.PresenceConfirmed, FirstSeenAt: clock.Now()}
	assert.False(t, tracker.DueForConfirmation(confirmed, testFence, clock.Now().Add(time.Hour)))
	assert.False(t, tracker.DueForConfirmation(nil, testFence, clock.Now()))
}

func TestDueForConfirmationZeroMinStay(t *testing.T) {
	clock := newFakeClock(t)
	tracker := NewPresenceTracker(0)
	fence := testFence
	fence.MinStayMinutes = 0

	p := &models.Presence{
		Status:      models.PresenceDetecting,
		FirstSeenAt: clock.Now(),
	}
	assert.True(t, tracker.DueForConfirmation(p, fence, clock.Now()), "zero min stay confirms on first ping")
}

func TestExitIsTerminal(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	clock := newFakeClock(t)
	tracker := NewPresenceTracker(0)

	p, err := tracker.Observe(ctx, st, 1, 1, inRangeVerdict(), 10, clock.Now())
	require.NoError(t, err)

	clock.Advance(time.Minute)
	require.NoError(t, tracker.Exit(ctx, st, p, clock.Now()))
	exitedAt := *p.ExitedAt

	// Second exit is a no-op and keeps the original timestamp.
	clock.Advance(time.Minute)
	require.NoError(t, tracker.Exit(ctx, st, p, clock.Now()))
	assert.Equal(t, exitedAt, *p.ExitedAt)
}
