package services

import "errors"

// Business-rule failures surfaced to the caller. None of these are retried
// or logged as faults; controllers map them onto HTTP responses.
var (
	// ErrGymNotFound means the gym id does not exist in the directory.
	ErrGymNotFound = errors.New("gym not found")

	// ErrGeofenceDisabled means the gym has auto check-in turned off.
	ErrGeofenceDisabled = errors.New("auto check-in disabled for this gym")

	// ErrGpsAccuracyTooLow means the reported GPS accuracy exceeds the
	// acceptable ceiling, so the distance reading cannot be trusted.
	ErrGpsAccuracyTooLow = errors.New("gps accuracy too low")

	// ErrOutOfRange means the reported position is outside the geofence.
	ErrOutOfRange = errors.New("outside gym geofence")

	// ErrAlreadyCheckedInToday means an attendance already exists for this
	// user, gym and calendar day.
	ErrAlreadyCheckedInToday = errors.New("already checked in today")

	// ErrInsufficientBalance means a debit would drive the token balance
	// negative.
	ErrInsufficientBalance = errors.New("insufficient token balance")

	// ErrDuplicateLedgerEntry means the (ref_type, ref_id, reason)
	// idempotency key was already used for this user.
	ErrDuplicateLedgerEntry = errors.New("duplicate ledger entry")

	// ErrNoActivePresence means the user has no open presence at the gym,
	// so there is nothing to confirm or check out of.
	ErrNoActivePresence = errors.New("no active presence")
)
