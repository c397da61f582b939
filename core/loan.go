package core

import (
	"time"

	"github.com/google/uuid"
)

// Loan tracks a single borrowing of a book by a member through the
// request -> active -> closed progression. At most one open loan may exist
// per (member, book) pair; the engine enforces this before creation so a
// member can borrow the same book again once an earlier loan is closed.
type Loan struct {
	ID          uuid.UUID
	MemberID    uuid.UUID
	BookID      uuid.UUID
	State       LoanState
	RequestedAt time.Time
	StartedAt   time.Time // zero until the loan is approved
	DueAt       time.Time // zero until approved; StartedAt + LoanDurationDays
	ReturnedAt  time.Time // zero until the loan is closed
}

// IsOpen reports whether the loan still blocks the book and occupies one of
// the member's quota slots.
func (l Loan) IsOpen() bool {
	return l.State.IsOpen()
}

// IsOverdue reports whether an active loan has passed its due date on the
// given day. The due date itself is not overdue yet. Overdue is a derived,
// read-only fact - it never causes a transition on its own.
func (l Loan) IsOverdue(today time.Time) bool {
	if l.State != LoanActive || l.DueAt.IsZero() {
		return false
	}

	return ToDate(today).After(l.DueAt)
}
