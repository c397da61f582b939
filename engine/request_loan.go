package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/friedgreenrepos/biblioteca/core"
	"github.com/friedgreenrepos/biblioteca/storage"
)

// RequestLoan registers a member's request for a book and creates the loan in
// state requested.
//
// Returns the created loan, or one of:
//   - core.ErrMemberSuspended
//   - core.ErrLoanAlreadyOpen
//   - core.ErrQuotaExceeded
//   - storage.ErrResourceBusy
//   - storage.ErrMemberNotFound / storage.ErrBookNotFound
func (e *Engine) RequestLoan(ctx context.Context, memberID, bookID uuid.UUID) (core.Loan, error) {
	var created core.Loan

	err := e.inTransaction(ctx, operationRequestLoan, func(tx storage.Tx) error {
		member, err := tx.LockMember(ctx, memberID)
		if err != nil {
			return err
		}

		// books are never mutated here, but a request against a book the
		// catalog does not know must surface as not-found
		if _, err := tx.GetBook(ctx, bookID); err != nil {
			return err
		}

		var open *core.Loan
		if existing, found, err := tx.FindOpenLoan(ctx, memberID, bookID); err != nil {
			return err
		} else if found {
			open = &existing
		}

		decision, err := core.DecideRequestLoan(member, open, uuid.New(), bookID, e.today(), e.policy)
		if err != nil {
			return err
		}

		if err := tx.UpdateMember(ctx, decision.Member); err != nil {
			return err
		}
		if err := tx.InsertLoan(ctx, decision.Loan); err != nil {
			return err
		}

		created = decision.Loan

		return nil
	})
	if err != nil {
		return core.Loan{}, err
	}

	return created, nil
}
