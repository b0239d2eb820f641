package clock

import "time"

// Func returns the current time. Components take one so tests can pin "now".
type Func func() time.Time

// System is the wall clock.
func System() time.Time { return time.Now() }

// NowOr returns fn when set, otherwise the wall clock.
func NowOr(fn Func) Func {
	if fn == nil {
		return System
	}
	return fn
}

// UTCDay formats t's UTC calendar day as YYYY-MM-DD.
func UTCDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// NextUTCMidnight is the first instant of the UTC day after t.
func NextUTCMidnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}
