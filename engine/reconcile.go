package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/friedgreenrepos/biblioteca/storage"
)

// CounterAudit is the result of recomputing a member's denormalized counters
// from the loan rows.
type CounterAudit struct {
	MemberID uuid.UUID

	StoredPendingRequests int
	StoredActiveLoans     int

	CountedPendingRequests int
	CountedActiveLoans     int

	// Repaired is true when the stored counters drifted and were rewritten
	// to the recounted values in the same transaction.
	Repaired bool
}

// Drifted reports whether the stored counters disagree with the loan rows.
func (a CounterAudit) Drifted() bool {
	return a.StoredPendingRequests != a.CountedPendingRequests ||
		a.StoredActiveLoans != a.CountedActiveLoans
}

// ReconcileMemberCounters recounts the member's requested and active loans
// from the loan rows, under the member lock so no loan transition can run
// concurrently. With repair=true drifted counters are rewritten to the
// recounted values; otherwise the audit is purely diagnostic.
//
// The counters are a deliberate denormalization - this operation exists to
// detect (and in tests, to rule out) drift.
func (e *Engine) ReconcileMemberCounters(ctx context.Context, memberID uuid.UUID, repair bool) (CounterAudit, error) {
	var audit CounterAudit

	err := e.inTransaction(ctx, operationReconcileCounters, func(tx storage.Tx) error {
		member, err := tx.LockMember(ctx, memberID)
		if err != nil {
			return err
		}

		requested, active, err := tx.CountOpenLoans(ctx, memberID)
		if err != nil {
			return err
		}

		audit = CounterAudit{
			MemberID:               memberID,
			StoredPendingRequests:  member.PendingRequests,
			StoredActiveLoans:      member.ActiveLoans,
			CountedPendingRequests: requested,
			CountedActiveLoans:     active,
		}

		if repair && audit.Drifted() {
			member.PendingRequests = requested
			member.ActiveLoans = active

			if err := tx.UpdateMember(ctx, member); err != nil {
				return err
			}

			audit.Repaired = true
		}

		return nil
	})
	if err != nil {
		return CounterAudit{}, err
	}

	return audit, nil
}
