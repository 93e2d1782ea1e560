package quote

import "time"

// The US equity trading calendar lives in Eastern time. Fall back to a
// fixed EST offset when the system has no tz database; a one-hour DST skew
// only widens or narrows the cache TTL window, it never breaks anything.
var easternTime = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*60*60)
	}
	return loc
}()

// IsMarketOpen reports whether t falls within regular US market hours,
// 09:30-16:00 Eastern on weekdays. Holidays are not modeled; a holiday
// only means a shorter cache TTL than strictly necessary.
func IsMarketOpen(t time.Time) bool {
	et := t.In(easternTime)

	switch et.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	minutes := et.Hour()*60 + et.Minute()
	return minutes >= 9*60+30 && minutes < 16*60
}
