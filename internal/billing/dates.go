package billing

import (
	"math"
	"time"
)

// DaysRemaining counts the days from the start of now's day through the end
// of end's day, rounded up and never negative. Both are taken in now's
// location.
func DaysRemaining(end, now time.Time) int {
	loc := now.Location()
	end = end.In(loc)

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	endOfDay := time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, int(999*time.Millisecond), loc)

	days := int(math.Ceil(endOfDay.Sub(today).Hours() / 24))
	return max(0, days)
}

// NextBillingDate returns start plus one billing cycle.
func NextBillingDate(start time.Time, cycleDays int) time.Time {
	if cycleDays <= 0 {
		cycleDays = DefaultCycleDays
	}
	return start.AddDate(0, 0, cycleDays)
}

// IsPast reports whether t is before now.
func IsPast(t, now time.Time) bool {
	return t.Before(now)
}
