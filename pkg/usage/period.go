package usage

import (
	"time"

	"github.com/dmitrymomot/gatekit/pkg/feature"
)

// periodStart computes the start boundary of the period containing now.
// Daily is local midnight, weekly the most recent Sunday midnight, monthly
// the first of the current month. Any other period (total, unknown) maps
// to the epoch sentinel and therefore never rolls over.
func periodStart(p feature.Period, now time.Time) time.Time {
	switch p {
	case feature.PeriodDaily:
		year, month, day := now.Date()
		return time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	case feature.PeriodWeekly:
		year, month, day := now.Date()
		midnight := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
		return midnight.AddDate(0, 0, -int(now.Weekday()))
	case feature.PeriodMonthly:
		year, month, _ := now.Date()
		return time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Unix(0, 0).UTC()
	}
}

// expiredPeriod reports whether a stored period start is older than the
// current boundary. Equality means "still the current period" and does not
// trigger a reset.
func expiredPeriod(stored, boundary time.Time) bool {
	return stored.Before(boundary)
}
