package core_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/friedgreenrepos/biblioteca/core"
)

var day0 = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return day0.AddDate(0, 0, n)
}

func Test_DecideRequestLoan_Success(t *testing.T) {
	// arrange
	member := givenMember(t, 1, 1)
	bookID := uuid.New()
	loanID := uuid.New()

	// act
	decision, err := core.DecideRequestLoan(member, nil, loanID, bookID, day(0), core.DefaultPolicy())

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 2, decision.Member.PendingRequests)
	assert.Equal(t, 1, decision.Member.ActiveLoans)
	assert.Equal(t, loanID, decision.Loan.ID)
	assert.Equal(t, member.ID, decision.Loan.MemberID)
	assert.Equal(t, bookID, decision.Loan.BookID)
	assert.Equal(t, core.LoanRequested, decision.Loan.State)
	assert.Equal(t, day(0), decision.Loan.RequestedAt)
	assert.True(t, decision.Loan.StartedAt.IsZero())
	assert.True(t, decision.Loan.DueAt.IsZero())
}

func Test_DecideRequestLoan_QuotaCountsRequestsAndActiveLoansTogether(t *testing.T) {
	testCases := []struct {
		name            string
		pendingRequests int
		activeLoans     int
		expectedErr     error
	}{
		{name: "empty quota", pendingRequests: 0, activeLoans: 0, expectedErr: nil},
		{name: "one slot left", pendingRequests: 1, activeLoans: 2, expectedErr: nil},
		{name: "quota full with requests only", pendingRequests: 4, activeLoans: 0, expectedErr: core.ErrQuotaExceeded},
		{name: "quota full with loans only", pendingRequests: 0, activeLoans: 4, expectedErr: core.ErrQuotaExceeded},
		{name: "quota full with a mix", pendingRequests: 2, activeLoans: 2, expectedErr: core.ErrQuotaExceeded},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			member := givenMember(t, tc.pendingRequests, tc.activeLoans)

			_, err := core.DecideRequestLoan(member, nil, uuid.New(), uuid.New(), day(0), core.DefaultPolicy())

			if tc.expectedErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.expectedErr)
			}
		})
	}
}

func Test_DecideRequestLoan_RejectsWhenOpenLoanExists(t *testing.T) {
	member := givenMember(t, 0, 0)
	open := core.Loan{ID: uuid.New(), MemberID: member.ID, BookID: uuid.New(), State: core.LoanRequested}

	_, err := core.DecideRequestLoan(member, &open, uuid.New(), open.BookID, day(0), core.DefaultPolicy())

	assert.ErrorIs(t, err, core.ErrLoanAlreadyOpen)
}

func Test_DecideRequestLoan_SuspensionGate(t *testing.T) {
	testCases := []struct {
		name          string
		suspensionEnd time.Time
		expectedErr   error
	}{
		{name: "never suspended", suspensionEnd: time.Time{}, expectedErr: nil},
		{name: "suspension ends tomorrow", suspensionEnd: day(1), expectedErr: core.ErrMemberSuspended},
		{name: "suspension ends today", suspensionEnd: day(0), expectedErr: nil},
		{name: "suspension ended yesterday", suspensionEnd: day(-1), expectedErr: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			member := givenMember(t, 0, 0)
			member.SuspensionEnd = tc.suspensionEnd

			_, err := core.DecideRequestLoan(member, nil, uuid.New(), uuid.New(), day(0), core.DefaultPolicy())

			if tc.expectedErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.expectedErr)
			}
		})
	}
}

func Test_DecideApproveLoan_Success(t *testing.T) {
	// arrange
	member := givenMember(t, 1, 0)
	loan := givenRequestedLoan(t, member)

	// act
	decision, err := core.DecideApproveLoan(member, loan, day(0), core.DefaultPolicy())

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 0, decision.Member.PendingRequests)
	assert.Equal(t, 1, decision.Member.ActiveLoans)
	assert.Equal(t, core.LoanActive, decision.Loan.State)
	assert.Equal(t, day(0), decision.Loan.StartedAt)
	assert.Equal(t, day(30), decision.Loan.DueAt, "due date must be start + LoanDurationDays")
}

func Test_DecideApproveLoan_WrongState(t *testing.T) {
	member := givenMember(t, 0, 1)

	activeLoan := givenRequestedLoan(t, member)
	activeLoan.State = core.LoanActive

	closedLoan := givenRequestedLoan(t, member)
	closedLoan.State = core.LoanClosed

	_, err := core.DecideApproveLoan(member, activeLoan, day(0), core.DefaultPolicy())
	assert.ErrorIs(t, err, core.ErrLoanAlreadyActive)

	_, err = core.DecideApproveLoan(member, closedLoan, day(0), core.DefaultPolicy())
	assert.ErrorIs(t, err, core.ErrNoOpenLoan)
}

func Test_DecideApproveLoan_RejectsWhenActiveLoansAtCap(t *testing.T) {
	member := givenMember(t, 1, 4)
	loan := givenRequestedLoan(t, member)

	_, err := core.DecideApproveLoan(member, loan, day(0), core.DefaultPolicy())

	assert.ErrorIs(t, err, core.ErrQuotaExceeded)
}

func Test_DecideRejectLoan(t *testing.T) {
	member := givenMember(t, 2, 0)
	loan := givenRequestedLoan(t, member)

	decision, err := core.DecideRejectLoan(member, loan)

	assert.NoError(t, err)
	assert.Equal(t, 1, decision.Member.PendingRequests)

	loan.State = core.LoanActive
	_, err = core.DecideRejectLoan(member, loan)
	assert.ErrorIs(t, err, core.ErrLoanAlreadyActive)

	loan.State = core.LoanClosed
	_, err = core.DecideRejectLoan(member, loan)
	assert.ErrorIs(t, err, core.ErrNoOpenLoan)
}

func Test_DecideReturnLoan(t *testing.T) {
	member := givenMember(t, 0, 1)
	loan := givenRequestedLoan(t, member)
	loan.State = core.LoanActive
	loan.StartedAt = day(-10)
	loan.DueAt = day(20)

	decision, err := core.DecideReturnLoan(member, loan, day(0))

	assert.NoError(t, err)
	assert.Equal(t, 0, decision.Member.ActiveLoans)
	assert.Equal(t, core.LoanClosed, decision.Loan.State)
	assert.Equal(t, day(0), decision.Loan.ReturnedAt)
	assert.Equal(t, day(-10), decision.Loan.StartedAt, "history fields stay untouched")
	assert.Equal(t, day(20), decision.Loan.DueAt, "history fields stay untouched")
}

func Test_DecideReturnLoan_WrongState(t *testing.T) {
	member := givenMember(t, 1, 0)
	loan := givenRequestedLoan(t, member)

	_, err := core.DecideReturnLoan(member, loan, day(0))
	assert.ErrorIs(t, err, core.ErrNotYetDelivered)

	loan.State = core.LoanClosed
	_, err = core.DecideReturnLoan(member, loan, day(0))
	assert.ErrorIs(t, err, core.ErrNoOpenLoan)
}

func Test_DecideSuspendMember(t *testing.T) {
	member := givenMember(t, 0, 0)

	suspended := core.DecideSuspendMember(member, day(0), core.DefaultPolicy())

	assert.Equal(t, day(0), suspended.SuspensionStart)
	assert.Equal(t, day(10), suspended.SuspensionEnd)
	assert.True(t, suspended.IsSuspended(day(0)))
	assert.True(t, suspended.IsSuspended(day(9)))
	assert.False(t, suspended.IsSuspended(day(10)), "suspension is over on its end date")
}

func Test_RoundTrip_CountersReturnToInitialValues(t *testing.T) {
	member := givenMember(t, 0, 0)
	bookID := uuid.New()
	loanID := uuid.New()
	policy := core.DefaultPolicy()

	requested, err := core.DecideRequestLoan(member, nil, loanID, bookID, day(0), policy)
	assert.NoError(t, err)

	approved, err := core.DecideApproveLoan(requested.Member, requested.Loan, day(1), policy)
	assert.NoError(t, err)

	returned, err := core.DecideReturnLoan(approved.Member, approved.Loan, day(15))
	assert.NoError(t, err)

	assert.Equal(t, 0, returned.Member.PendingRequests)
	assert.Equal(t, 0, returned.Member.ActiveLoans)
	assert.Equal(t, core.LoanClosed, returned.Loan.State)
	assert.Equal(t, approved.Loan.StartedAt.AddDate(0, 0, 30), returned.Loan.DueAt)
}

// Test helpers

func givenMember(t *testing.T, pendingRequests, activeLoans int) core.Member {
	t.Helper()
	return core.Member{
		ID:              uuid.New(),
		Name:            "Test Member",
		PendingRequests: pendingRequests,
		ActiveLoans:     activeLoans,
	}
}

func givenRequestedLoan(t *testing.T, member core.Member) core.Loan {
	t.Helper()
	return core.Loan{
		ID:          uuid.New(),
		MemberID:    member.ID,
		BookID:      uuid.New(),
		State:       core.LoanRequested,
		RequestedAt: day(-1),
	}
}
