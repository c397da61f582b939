package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/friedgreenrepos/biblioteca/core"
	"github.com/friedgreenrepos/biblioteca/storage"
)

// RejectLoan declines a pending request. The loan row is removed and the
// member's pending request counter is released.
//
// Returns nil on success, or one of:
//   - core.ErrLoanAlreadyActive
//   - core.ErrNoOpenLoan
//   - storage.ErrResourceBusy
//   - storage.ErrLoanNotFound / storage.ErrMemberNotFound
func (e *Engine) RejectLoan(ctx context.Context, loanID uuid.UUID) error {
	return e.inTransaction(ctx, operationRejectLoan, func(tx storage.Tx) error {
		member, loan, err := e.lockMemberAndLoan(ctx, tx, loanID)
		if err != nil {
			return err
		}

		decision, err := core.DecideRejectLoan(member, loan)
		if err != nil {
			return err
		}

		if err := tx.UpdateMember(ctx, decision.Member); err != nil {
			return err
		}

		return tx.DeleteLoan(ctx, loan.ID)
	})
}
