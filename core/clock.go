package core

import (
	"time"
)

// Clock supplies the current time. The engine treats "today" as an injected
// dependency instead of an ambient system call, so tests can pin the clock
// and assert suspension and overdue behavior at exact day boundaries.
type Clock func() time.Time

// SystemClock is the production Clock.
func SystemClock() time.Time {
	return time.Now()
}

// ToDate truncates a time to its UTC calendar day. All loan and suspension
// arithmetic works on whole days.
func ToDate(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
