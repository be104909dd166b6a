package services

import (
	"math"
	"time"
)

// Clock supplies wall-clock time to the engine. Injected so dwell and
// calendar rules can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }

// DayOf truncates an instant to its calendar date at midnight, keeping the
// instant's location.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// WeekStartOf returns the Monday at midnight of the week containing t.
func WeekStartOf(t time.Time) time.Time {
	day := DayOf(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// DaysBetween returns the whole calendar days from a to b. Both arguments
// are expected to be midnight dates from DayOf; rounding absorbs DST-shifted
// day lengths.
func DaysBetween(a, b time.Time) int {
	return int(math.Round(b.Sub(a).Hours() / 24))
}
