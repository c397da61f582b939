package core

import (
	"time"

	"github.com/google/uuid"
)

// The Decide functions below implement the loan state machine. Each one is a
// pure function: it takes the authoritative entity snapshots the engine
// re-read under lock, applies the guards of the transition table and returns
// the mutated snapshots, or a typed rejection. Guard failures are never a
// silent no-op.

// RequestLoanDecision carries the mutations of a successful RequestLoan.
type RequestLoanDecision struct {
	Member Member // pending requests incremented
	Loan   Loan   // the new loan in state requested
}

// ApproveLoanDecision carries the mutations of a successful ApproveLoan.
type ApproveLoanDecision struct {
	Member Member // pending requests decremented, active loans incremented
	Loan   Loan   // now active, with start and due dates set
}

// RejectLoanDecision carries the mutations of a successful RejectLoan.
// The loan itself is removed, so only the member changes.
type RejectLoanDecision struct {
	Member Member // pending requests decremented
}

// ReturnLoanDecision carries the mutations of a successful ReturnLoan.
type ReturnLoanDecision struct {
	Member Member // active loans decremented
	Loan   Loan   // now closed
}

// DecideRequestLoan decides whether a member may request a book.
//
// Business rules:
//
//	GIVEN: a member and a book, and the open loan for the pair if one exists
//	WHEN: a loan request is received
//	THEN: a new loan in state requested is created and the member's pending
//	      request counter is incremented
//	ERROR: ErrMemberSuspended if the member is inside a suspension window
//	ERROR: ErrLoanAlreadyOpen if an open loan for the pair already exists
//	ERROR: ErrQuotaExceeded if requests + active loans have reached the cap
func DecideRequestLoan(
	member Member,
	openLoan *Loan,
	loanID uuid.UUID,
	bookID uuid.UUID,
	today time.Time,
	policy Policy,
) (RequestLoanDecision, error) {

	if member.IsSuspended(today) {
		return RequestLoanDecision{}, ErrMemberSuspended
	}

	if openLoan != nil {
		return RequestLoanDecision{}, ErrLoanAlreadyOpen
	}

	if member.OpenLoanTotal() >= policy.MaxConcurrentPerMember {
		return RequestLoanDecision{}, ErrQuotaExceeded
	}

	member.PendingRequests++

	loan := Loan{
		ID:          loanID,
		MemberID:    member.ID,
		BookID:      bookID,
		State:       LoanRequested,
		RequestedAt: ToDate(today),
	}

	return RequestLoanDecision{Member: member, Loan: loan}, nil
}

// DecideApproveLoan decides whether a requested loan may be delivered.
//
// Business rules:
//
//	GIVEN: a loan and its member
//	WHEN: a staff operator approves the request
//	THEN: the loan becomes active with due date = today + LoanDurationDays,
//	      the pending request counter moves to the active loan counter
//	ERROR: ErrLoanAlreadyActive if the loan was already delivered
//	ERROR: ErrNoOpenLoan if the loan is already closed
//	ERROR: ErrQuotaExceeded if the member already holds the maximum of
//	       active loans
func DecideApproveLoan(
	member Member,
	loan Loan,
	today time.Time,
	policy Policy,
) (ApproveLoanDecision, error) {

	switch loan.State {
	case LoanRequested:
		// the only state this transition applies to
	case LoanActive:
		return ApproveLoanDecision{}, ErrLoanAlreadyActive
	case LoanClosed:
		return ApproveLoanDecision{}, ErrNoOpenLoan
	default:
		return ApproveLoanDecision{}, ErrNoOpenLoan
	}

	if member.ActiveLoans >= policy.MaxConcurrentPerMember {
		return ApproveLoanDecision{}, ErrQuotaExceeded
	}

	if member.PendingRequests > 0 {
		member.PendingRequests--
	}
	member.ActiveLoans++

	loan.State = LoanActive
	loan.StartedAt = ToDate(today)
	loan.DueAt = policy.DueDateFrom(today)

	return ApproveLoanDecision{Member: member, Loan: loan}, nil
}

// DecideRejectLoan decides whether a requested loan may be rejected.
// Rejection removes the loan entirely; only requested loans qualify.
//
// Business rules:
//
//	ERROR: ErrLoanAlreadyActive if the loan was already delivered
//	ERROR: ErrNoOpenLoan if the loan is already closed
func DecideRejectLoan(member Member, loan Loan) (RejectLoanDecision, error) {
	switch loan.State {
	case LoanRequested:
		// the only state this transition applies to
	case LoanActive:
		return RejectLoanDecision{}, ErrLoanAlreadyActive
	case LoanClosed:
		return RejectLoanDecision{}, ErrNoOpenLoan
	default:
		return RejectLoanDecision{}, ErrNoOpenLoan
	}

	if member.PendingRequests > 0 {
		member.PendingRequests--
	}

	return RejectLoanDecision{Member: member}, nil
}

// DecideReturnLoan decides whether an active loan may be closed.
//
// Business rules:
//
//	ERROR: ErrNotYetDelivered if the loan is still a pending request
//	ERROR: ErrNoOpenLoan if the loan is already closed
func DecideReturnLoan(member Member, loan Loan, today time.Time) (ReturnLoanDecision, error) {
	switch loan.State {
	case LoanActive:
		// the only state this transition applies to
	case LoanRequested:
		return ReturnLoanDecision{}, ErrNotYetDelivered
	case LoanClosed:
		return ReturnLoanDecision{}, ErrNoOpenLoan
	default:
		return ReturnLoanDecision{}, ErrNoOpenLoan
	}

	if member.ActiveLoans > 0 {
		member.ActiveLoans--
	}

	loan.State = LoanClosed
	loan.ReturnedAt = ToDate(today)

	return ReturnLoanDecision{Member: member, Loan: loan}, nil
}

// DecideSuspendMember computes the suspension window a report with
// suspend=true opens on the member.
func DecideSuspendMember(member Member, today time.Time, policy Policy) Member {
	member.SuspensionStart = ToDate(today)
	member.SuspensionEnd = ComputeSuspensionEnd(today, policy)

	return member
}
