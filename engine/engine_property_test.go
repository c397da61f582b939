package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/friedgreenrepos/biblioteca/core"
	"github.com/friedgreenrepos/biblioteca/engine"
	"github.com/friedgreenrepos/biblioteca/memorystore"
	"github.com/friedgreenrepos/biblioteca/testutil"
)

// Any interleaving of lifecycle operations, valid or not, must keep the
// denormalized member counters inside the quota bounds and equal to a recount
// from the loan rows.
func Test_CountersNeverDrift_UnderRandomOperationSequences(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		store := memorystore.NewMemoryStore()

		policy := core.Policy{
			LoanDurationDays:       rapid.IntRange(1, 60).Draw(rt, "loanDays"),
			MaxConcurrentPerMember: rapid.IntRange(1, 5).Draw(rt, "maxConcurrent"),
			SuspensionDurationDays: rapid.IntRange(1, 30).Draw(rt, "suspensionDays"),
		}

		e, err := engine.NewEngine(store,
			engine.WithClock(testutil.FixedClock(testutil.Day(0))),
			engine.WithPolicy(policy),
		)
		require.NoError(rt, err)

		member := core.Member{ID: uuid.New(), Name: "property member"}
		require.NoError(rt, store.InsertMember(ctx, member))

		books := make([]core.Book, rapid.IntRange(1, 8).Draw(rt, "books"))
		for i := range books {
			books[i] = core.Book{ID: uuid.New(), Title: "book"}
			require.NoError(rt, store.InsertBook(ctx, books[i]))
		}

		var loanIDs []uuid.UUID

		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 3).Draw(rt, "op") {
			case 0:
				book := books[rapid.IntRange(0, len(books)-1).Draw(rt, "book")]
				loan, err := e.RequestLoan(ctx, member.ID, book.ID)
				if err == nil {
					loanIDs = append(loanIDs, loan.ID)
				} else {
					requireBusinessError(rt, err)
				}
			case 1:
				if id, ok := pickLoan(rt, loanIDs); ok {
					if _, err := e.ApproveLoan(ctx, id); err != nil {
						requireBusinessError(rt, err)
					}
				}
			case 2:
				if id, ok := pickLoan(rt, loanIDs); ok {
					if err := e.RejectLoan(ctx, id); err != nil {
						requireBusinessError(rt, err)
					}
				}
			case 3:
				if id, ok := pickLoan(rt, loanIDs); ok {
					if _, err := e.ReturnLoan(ctx, id); err != nil {
						requireBusinessError(rt, err)
					}
				}
			}

			stored, err := store.GetMember(ctx, member.ID)
			require.NoError(rt, err)

			if stored.PendingRequests < 0 || stored.ActiveLoans < 0 {
				rt.Fatalf("counter went negative: %+v", stored)
			}
			if stored.OpenLoanTotal() > policy.MaxConcurrentPerMember {
				rt.Fatalf("quota exceeded: %+v with max %d", stored, policy.MaxConcurrentPerMember)
			}
		}

		audit, err := e.ReconcileMemberCounters(ctx, member.ID, false)
		require.NoError(rt, err)

		if audit.Drifted() {
			rt.Fatalf("counters drifted from loan rows: %+v", audit)
		}
	})
}

func pickLoan(rt *rapid.T, ids []uuid.UUID) (uuid.UUID, bool) {
	if len(ids) == 0 {
		return uuid.UUID{}, false
	}

	return ids[rapid.IntRange(0, len(ids)-1).Draw(rt, "loan")], true
}

func requireBusinessError(rt *rapid.T, err error) {
	for _, expected := range []error{
		core.ErrQuotaExceeded,
		core.ErrMemberSuspended,
		core.ErrLoanAlreadyOpen,
		core.ErrLoanAlreadyActive,
		core.ErrNoOpenLoan,
		core.ErrNotYetDelivered,
	} {
		if errors.Is(err, expected) {
			return
		}
	}

	rt.Fatalf("unexpected error: %v", err)
}
