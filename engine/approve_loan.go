package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/friedgreenrepos/biblioteca/core"
	"github.com/friedgreenrepos/biblioteca/storage"
)

// ApproveLoan delivers a requested loan: the loan becomes active and its due
// date is set to today + LoanDurationDays.
//
// Returns the activated loan, or one of:
//   - core.ErrLoanAlreadyActive
//   - core.ErrNoOpenLoan
//   - core.ErrQuotaExceeded
//   - storage.ErrResourceBusy
//   - storage.ErrLoanNotFound / storage.ErrMemberNotFound
func (e *Engine) ApproveLoan(ctx context.Context, loanID uuid.UUID) (core.Loan, error) {
	var approved core.Loan

	err := e.inTransaction(ctx, operationApproveLoan, func(tx storage.Tx) error {
		member, loan, err := e.lockMemberAndLoan(ctx, tx, loanID)
		if err != nil {
			return err
		}

		decision, err := core.DecideApproveLoan(member, loan, e.today(), e.policy)
		if err != nil {
			return err
		}

		if err := tx.UpdateMember(ctx, decision.Member); err != nil {
			return err
		}
		if err := tx.UpdateLoan(ctx, decision.Loan); err != nil {
			return err
		}

		approved = decision.Loan

		return nil
	})
	if err != nil {
		return core.Loan{}, err
	}

	return approved, nil
}

// lockMemberAndLoan takes the locks for a loan-targeted transition. The loan
// is first read without a lock to discover the owning member, then both rows
// are locked in member -> loan order and the loan is re-read under its lock -
// pre-lock reads are never trusted, a concurrent writer may have moved the
// loan on.
func (e *Engine) lockMemberAndLoan(ctx context.Context, tx storage.Tx, loanID uuid.UUID) (core.Member, core.Loan, error) {
	peek, err := tx.GetLoan(ctx, loanID)
	if err != nil {
		return core.Member{}, core.Loan{}, err
	}

	member, err := tx.LockMember(ctx, peek.MemberID)
	if err != nil {
		return core.Member{}, core.Loan{}, err
	}

	loan, err := tx.LockLoan(ctx, loanID)
	if err != nil {
		return core.Member{}, core.Loan{}, err
	}

	return member, loan, nil
}
