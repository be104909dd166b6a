package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/peakfit/peakfit/models"
)

func TestAtomicallyRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	require.NoError(t, st.Gyms().Create(ctx, &models.Gym{Name: "A"}))

	boom := errors.New("boom")
	err := st.Atomically(ctx, func(uow UnitOfWork) error {
		if err := uow.Gyms().Create(ctx, &models.Gym{Name: "B"}); err != nil {
			return err
		}
		if err := uow.Streaks().Create(ctx, &models.Streak{UserID: 1, Current: 3}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	gyms, err := st.Gyms().List(ctx)
	require.NoError(t, err)
	assert.Len(t, gyms, 1, "the failed unit of work must leave no writes behind")

	s, err := st.Streaks().ForUser(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestAtomicallyCommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	err := st.Atomically(ctx, func(uow UnitOfWork) error {
		return uow.Gyms().Create(ctx, &models.Gym{Name: "A"})
	})
	require.NoError(t, err)

	gyms, err := st.Gyms().List(ctx)
	require.NoError(t, err)
	assert.Len(t, gyms, 1)
}

func TestAttendanceDayUniqueness(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	day := time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)

	require.NoError(t, st.Attendances().Create(ctx, &models.Attendance{UserID: 1, GymID: 1, Day: day}))

	err := st.Attendances().Create(ctx, &models.Attendance{UserID: 1, GymID: 1, Day: day})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// Different user or gym is fine.
	assert.NoError(t, st.Attendances().Create(ctx, &models.Attendance{UserID: 2, GymID: 1, Day: day}))
	assert.NoError(t, st.Attendances().Create(ctx, &models.Attendance{UserID: 1, GymID: 2, Day: day}))
}

func TestLedgerRefUniqueness(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	refType := models.LedgerRefAttendance
	refID := uint(1)
	entry := func() *models.TokenLedgerEntry {
		rt, ri := refType, refID
		return &models.TokenLedgerEntry{
			UserID: 1, Delta: 10, Reason: models.LedgerReasonCheckIn,
			RefType: &rt, RefID: &ri, BalanceAfter: 10,
		}
	}

	require.NoError(t, st.Ledger().Append(ctx, entry()))
	assert.ErrorIs(t, st.Ledger().Append(ctx, entry()), gorm.ErrDuplicatedKey)

	// Unreferenced entries never collide.
	require.NoError(t, st.Ledger().Append(ctx, &models.TokenLedgerEntry{UserID: 1, Delta: 1, Reason: models.LedgerReasonCheckIn, BalanceAfter: 11}))
	require.NoError(t, st.Ledger().Append(ctx, &models.TokenLedgerEntry{UserID: 1, Delta: 1, Reason: models.LedgerReasonCheckIn, BalanceAfter: 12}))
}

func TestLedgerListNewestFirstWithPaging(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	for i := 1; i <= 5; i++ {
		require.NoError(t, st.Ledger().Append(ctx, &models.TokenLedgerEntry{UserID: 1, Delta: i, BalanceAfter: i}))
	}

	page, err := st.Ledger().List(ctx, 1, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, 5, page[0].Delta)
	assert.Equal(t, 4, page[1].Delta)

	page, err = st.Ledger().List(ctx, 1, 2, 4)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, 1, page[0].Delta)

	page, err = st.Ledger().List(ctx, 1, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestActivePresenceLookupSkipsExited(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	now := time.Now()

	exited := now
	require.NoError(t, st.Presences().Create(ctx, &models.Presence{
		UserID: 1, GymID: 1, Status: models.PresenceExited, ExitedAt: &exited,
	}))
	require.NoError(t, st.Presences().Create(ctx, &models.Presence{
		UserID: 1, GymID: 1, Status: models.PresenceDetecting, FirstSeenAt: now, LastSeenAt: now,
	}))

	p, err := st.Presences().ActiveForUserGym(ctx, 1, 1)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, models.PresenceDetecting, p.Status)

	all, err := st.Presences().ActiveForUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
