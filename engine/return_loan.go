package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/friedgreenrepos/biblioteca/core"
	"github.com/friedgreenrepos/biblioteca/storage"
)

// ReturnLoan closes an active loan. The loan is kept as immutable history;
// the member's active loan counter is released.
//
// Returns the closed loan, or one of:
//   - core.ErrNotYetDelivered
//   - core.ErrNoOpenLoan
//   - storage.ErrResourceBusy
//   - storage.ErrLoanNotFound / storage.ErrMemberNotFound
func (e *Engine) ReturnLoan(ctx context.Context, loanID uuid.UUID) (core.Loan, error) {
	var closed core.Loan

	err := e.inTransaction(ctx, operationReturnLoan, func(tx storage.Tx) error {
		member, loan, err := e.lockMemberAndLoan(ctx, tx, loanID)
		if err != nil {
			return err
		}

		decision, err := core.DecideReturnLoan(member, loan, e.today())
		if err != nil {
			return err
		}

		if err := tx.UpdateMember(ctx, decision.Member); err != nil {
			return err
		}
		if err := tx.UpdateLoan(ctx, decision.Loan); err != nil {
			return err
		}

		closed = decision.Loan

		return nil
	})
	if err != nil {
		return core.Loan{}, err
	}

	return closed, nil
}
