package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/peakfit/peakfit/models"
	"github.com/peakfit/peakfit/store"
)

// LedgerRef ties a ledger entry to the event that caused it. The
// (Type, ID, reason) triple is the idempotency key for retried
// orchestrations.
type LedgerRef struct {
	Type string
	ID   uint
}

// TokenLedger is the system of record for spendable token balances. The
// balance is always the BalanceAfter of the most recent entry; there is no
// separately maintained counter to drift.
type TokenLedger struct{}

// Credit appends a positive delta.
func (l TokenLedger) Credit(ctx context.Context, uow store.UnitOfWork, userID uint, amount int, reason string, ref *LedgerRef) (*models.TokenLedgerEntry, error) {
	return l.Append(ctx, uow, userID, amount, reason, ref)
}

// Debit appends a negative delta, failing with ErrInsufficientBalance when
// it would drive the balance below zero.
func (l TokenLedger) Debit(ctx context.Context, uow store.UnitOfWork, userID uint, amount int, reason string, ref *LedgerRef) (*models.TokenLedgerEntry, error) {
	return l.Append(ctx, uow, userID, -amount, reason, ref)
}

// Append writes one entry carrying the new running balance. A reused
// reference is rejected with ErrDuplicateLedgerEntry, both by the pre-check
// and by the unique index should two appends race.
func (TokenLedger) Append(ctx context.Context, uow store.UnitOfWork, userID uint, delta int, reason string, ref *LedgerRef) (*models.TokenLedgerEntry, error) {
	repo := uow.Ledger()

	if ref != nil {
		used, err := repo.RefExists(ctx, userID, ref.Type, ref.ID, reason)
		if err != nil {
			return nil, err
		}
		if used {
			return nil, ErrDuplicateLedgerEntry
		}
	}

	balance := 0
	latest, err := repo.Latest(ctx, userID)
	if err != nil {
		return nil, err
	}
	if latest != nil {
		balance = latest.BalanceAfter
	}

	if balance+delta < 0 {
		return nil, ErrInsufficientBalance
	}

	e := &models.TokenLedgerEntry{
		UserID:       userID,
		Delta:        delta,
		Reason:       reason,
		BalanceAfter: balance + delta,
	}
	if ref != nil {
		refType, refID := ref.Type, ref.ID
		e.RefType = &refType
		e.RefID = &refID
	}
	if err := repo.Append(ctx, e); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateLedgerEntry
		}
		return nil, err
	}
	return e, nil
}

// Balance reads the current balance from the most recent entry, inside the
// same transactional view the caller holds.
func (TokenLedger) Balance(ctx context.Context, uow store.UnitOfWork, userID uint) (int, error) {
	latest, err := uow.Ledger().Latest(ctx, userID)
	if err != nil {
		return 0, err
	}
	if latest == nil {
		return 0, nil
	}
	return latest.BalanceAfter, nil
}
