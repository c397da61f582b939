package core

import (
	"time"

	"github.com/google/uuid"
)

// Member is a person eligible to request and hold loans. Identity is created
// by the registration flow; the engine only ever mutates the counters and the
// suspension window, and only while the member row is locked.
//
// ActiveLoans and PendingRequests are authoritative, denormalized counters.
// They duplicate what could be derived by counting loan rows; keeping them on
// the member record makes the quota guard a single comparison under lock. The
// engine's reconcile operation recomputes them from the loan rows to detect
// drift.
type Member struct {
	ID              uuid.UUID
	Name            string
	ActiveLoans     int
	PendingRequests int
	SuspensionStart time.Time // zero when no suspension was ever recorded
	SuspensionEnd   time.Time // zero when no suspension window is set
}

// IsSuspended reports whether the member may not request new loans on the
// given day. The window is half-open: a member whose suspension ends today is
// no longer suspended.
func (m Member) IsSuspended(today time.Time) bool {
	return !m.SuspensionEnd.IsZero() && m.SuspensionEnd.After(ToDate(today))
}

// OpenLoanTotal is the number of quota slots the member currently occupies.
func (m Member) OpenLoanTotal() int {
	return m.ActiveLoans + m.PendingRequests
}
