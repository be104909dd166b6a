package models

import "time"

// Ledger reason codes.
const (
	LedgerReasonCheckIn      = "checkin_reward"
	LedgerReasonWeeklyGoal   = "weekly_goal_reward"
	LedgerReasonRecoveryItem = "recovery_item_purchase"
	LedgerReasonRedemption   = "reward_redemption"
)

// Ledger reference types, naming the aggregate a credit or debit originated
// from.
const (
	LedgerRefAttendance = "attendance"
	LedgerRefFrequency  = "frequency"
	LedgerRefStreak     = "streak"
)

// TokenLedgerEntry is one append-only row of the token ledger. Entries are
// never mutated or deleted; corrections happen through compensating entries.
// BalanceAfter carries the running balance so the current balance is always
// the most recent entry, while still having to agree with the sum of all
// deltas.
//
// The unique index over (user_id, ref_type, ref_id, reason) is the
// idempotency guard: a retried orchestration that tries to credit the same
// event twice is rejected by the database even if the application check
// races. Entries without a reference (manual adjustments) leave the ref
// columns NULL and are exempt.
type TokenLedgerEntry struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;index;uniqueIndex:idx_ledger_ref,priority:1" json:"user_id"`

	Delta        int     `gorm:"not null" json:"delta"`
	Reason       string  `gorm:"size:64;not null;uniqueIndex:idx_ledger_ref,priority:4" json:"reason"`
	RefType      *string `gorm:"size:32;uniqueIndex:idx_ledger_ref,priority:2" json:"ref_type,omitempty"`
	RefID        *uint   `gorm:"uniqueIndex:idx_ledger_ref,priority:3" json:"ref_id,omitempty"`
	BalanceAfter int     `gorm:"not null" json:"balance_after"`

	CreatedAt time.Time `json:"created_at"`
}
