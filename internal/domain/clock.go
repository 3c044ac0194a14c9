package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock supplies the as-of time when a conversion is not given one.
// Production code uses the real clock; tests inject a fake for deterministic output.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source for conversions. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// resolveAsOf returns asOf in UTC, or the clock's current time if asOf is zero.
func resolveAsOf(asOf time.Time) time.Time {
	if asOf.IsZero() {
		return clock.Now().UTC()
	}
	return asOf.UTC()
}
