// Package warranty computes coverage status for tracked products.
package warranty

import (
	"math"
	"time"
)

// Status is the coverage state of a product relative to a point in time.
type Status string

const (
	StatusActive   Status = "active"
	StatusExpiring Status = "expiring"
	StatusExpired  Status = "expired"
)

const (
	// ExpiringWindowDays is how close to expiry a product counts as expiring.
	ExpiringWindowDays = 30
	// DefaultReminderDays is the default reminder lead time.
	DefaultReminderDays = 7

	day = 24 * time.Hour
)

// DaysUntil returns the whole days left until end, rounded up. It is
// negative once end has passed.
func DaysUntil(end, now time.Time) int {
	return int(math.Ceil(end.Sub(now).Hours() / 24))
}

// StatusOf classifies end relative to now. A warranty is expiring from now
// until ExpiringWindowDays ahead, inclusive at both ends.
func StatusOf(end, now time.Time) Status {
	switch {
	case end.Before(now):
		return StatusExpired
	case !end.After(Horizon(now, ExpiringWindowDays)):
		return StatusExpiring
	default:
		return StatusActive
	}
}

// ShouldRemind reports whether a reminder is due: the warranty has not yet
// ended, ends within leadDays, and no reminder was sent before.
func ShouldRemind(end, now time.Time, leadDays int, alreadySent bool) bool {
	left := DaysUntil(end, now)
	return !alreadySent && left > 0 && left <= leadDays
}

// EndAfterMonths returns the end of a coverage period of months starting at
// purchase.
func EndAfterMonths(purchase time.Time, months int) time.Time {
	return purchase.AddDate(0, months, 0)
}

// Horizon returns the instant leadDays after now.
func Horizon(now time.Time, leadDays int) time.Time {
	return now.Add(time.Duration(leadDays) * day)
}
