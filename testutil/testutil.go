// Package testutil carries small fixtures shared by the test suites.
package testutil

import (
	"time"

	"github.com/friedgreenrepos/biblioteca/core"
)

// FixedClock returns a clock pinned to the given instant.
func FixedClock(at time.Time) core.Clock {
	return func() time.Time { return at }
}

// Day returns midnight UTC n days after the suite's base date (2026-03-02).
// Tests use it so date arithmetic reads as offsets instead of literals.
func Day(n int) time.Time {
	return time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}
