package core

import (
	"time"
)

// ComputeSuspensionEnd computes the end of a suspension window that starts on
// the given day. Pure and deterministic; the engine consults it whenever a
// suspension window must be (re)computed, and request validation reuses it
// through Member.IsSuspended instead of duplicating the arithmetic.
func ComputeSuspensionEnd(start time.Time, policy Policy) time.Time {
	return ToDate(start).AddDate(0, 0, policy.SuspensionDurationDays)
}
