package core

import (
	"errors"
)

// Typed rejections of the loan state machine. These are expected business
// outcomes, always reported to the caller and never retried automatically.
var (
	// ErrQuotaExceeded means the member already occupies the configured
	// maximum of simultaneous requests and active loans.
	ErrQuotaExceeded = errors.New("member has reached the maximum of simultaneous requests and loans")

	// ErrMemberSuspended means the member is inside a suspension window and
	// may not request new loans.
	ErrMemberSuspended = errors.New("member is currently suspended")

	// ErrLoanAlreadyOpen means an open loan already exists for this
	// (member, book) pair.
	ErrLoanAlreadyOpen = errors.New("an open loan already exists for this member and book")

	// ErrLoanAlreadyActive means the loan was already delivered; approving
	// it again is rejected.
	ErrLoanAlreadyActive = errors.New("loan is already active")

	// ErrNoOpenLoan means the loan is closed (or gone) and no transition
	// applies anymore.
	ErrNoOpenLoan = errors.New("no open loan for this transition")

	// ErrNotYetDelivered means the loan is still a pending request; it cannot
	// be returned before it was delivered.
	ErrNotYetDelivered = errors.New("loan has not been delivered yet")
)
