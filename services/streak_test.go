package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakfit/peakfit/store"
)

func day(t *testing.T, offset int) time.Time {
	t.Helper()
	base := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

func TestStreakFirstAttendance(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	var eng StreakEngine

	res, err := eng.Apply(ctx, st, 1, day(t, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Streak.Current)
	assert.Equal(t, 1, res.Streak.Max)
	assert.True(t, res.Extended)
	assert.False(t, res.Reset)
}

func TestStreakConsecutiveDays(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	var eng StreakEngine

	for i := 0; i < 5; i++ {
		res, err := eng.Apply(ctx, st, 1, day(t, i))
		require.NoError(t, err)
		assert.Equal(t, i+1, res.Streak.Current)
		assert.True(t, res.Extended)
	}

	s, err := st.Streaks().ForUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Current)
	assert.Equal(t, 5, s.Max)
}

func TestStreakSameDayRepeatIsNoOp(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	var eng StreakEngine

	_, err := eng.Apply(ctx, st, 1, day(t, 0))
	require.NoError(t, err)

	res, err := eng.Apply(ctx, st, 1, day(t, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Streak.Current)
	assert.False(t, res.Extended)
	assert.False(t, res.RecoveryUsed)
	assert.False(t, res.Reset)
}

func TestStreakGapResetsAndArchives(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	var eng StreakEngine

	for i := 0; i < 4; i++ {
		_, err := eng.Apply(ctx, st, 1, day(t, i))
		require.NoError(t, err)
	}

	// Two missed days with no recovery items: the run is over.
	res, err := eng.Apply(ctx, st, 1, day(t, 6))
	require.NoError(t, err)
	assert.True(t, res.Reset)
	assert.False(t, res.Extended)
	assert.Equal(t, 1, res.Streak.Current)
	assert.Equal(t, 4, res.Streak.Last)
	assert.Equal(t, 4, res.Streak.Max, "reset must not lose the historical max")
}

func TestStreakRecoveryItemBridgesGap(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	var eng StreakEngine

	for i := 0; i < 3; i++ {
		_, err := eng.Apply(ctx, st, 1, day(t, i))
		require.NoError(t, err)
	}

	_, err := eng.AddRecoveryItems(ctx, st, 1, 1)
	require.NoError(t, err)

	// One missed day: the item is consumed and the run keeps going.
	res, err := eng.Apply(ctx, st, 1, day(t, 4))
	require.NoError(t, err)
	assert.True(t, res.Extended)
	assert.True(t, res.RecoveryUsed)
	assert.False(t, res.Reset)
	assert.Equal(t, 4, res.Streak.Current)
	assert.Equal(t, 0, res.Streak.RecoveryItems)

	// Next gap has no items left, so it resets.
	res, err = eng.Apply(ctx, st, 1, day(t, 7))
	require.NoError(t, err)
	assert.True(t, res.Reset)
	assert.Equal(t, 1, res.Streak.Current)
	assert.Equal(t, 4, res.Streak.Last)
}

func TestStreakRowFromPurchaseDoesNotConsumeOnFirstAttendance(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	var eng StreakEngine

	// Buying an item before ever attending creates the row with no
	// last-attended day.
	s, err := eng.AddRecoveryItems(ctx, st, 1, 2)
	require.NoError(t, err)
	require.Nil(t, s.LastAttendedDay)

	res, err := eng.Apply(ctx, st, 1, day(t, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Streak.Current)
	assert.True(t, res.Extended)
	assert.False(t, res.RecoveryUsed)
	assert.Equal(t, 2, res.Streak.RecoveryItems, "starting a run must not burn an item")
}

func TestAddRecoveryItemsAccumulates(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	var eng StreakEngine

	s, err := eng.AddRecoveryItems(ctx, st, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, s.RecoveryItems)

	s, err = eng.AddRecoveryItems(ctx, st, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, s.RecoveryItems)
}
