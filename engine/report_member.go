package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/friedgreenrepos/biblioteca/core"
	"github.com/friedgreenrepos/biblioteca/storage"
)

// ReportMember records an incident against a member. The report is always
// recorded; with suspend=true the member row is additionally locked and a
// suspension window starting today is set through the suspension policy.
// Independent of any particular loan.
//
// Returns the stored report, or one of:
//   - storage.ErrResourceBusy (only possible with suspend=true)
//   - storage.ErrMemberNotFound
func (e *Engine) ReportMember(
	ctx context.Context,
	memberID uuid.UUID,
	kind core.ReportKind,
	description string,
	suspend bool,
) (core.Report, error) {

	report := core.Report{
		ID:          uuid.New(),
		MemberID:    memberID,
		Kind:        kind,
		Description: description,
		CreatedAt:   e.today(),
	}

	err := e.inTransaction(ctx, operationReportMember, func(tx storage.Tx) error {
		if suspend {
			member, err := tx.LockMember(ctx, memberID)
			if err != nil {
				return err
			}

			suspended := core.DecideSuspendMember(member, e.today(), e.policy)
			if err := tx.UpdateMember(ctx, suspended); err != nil {
				return err
			}
		}

		return tx.InsertReport(ctx, report)
	})
	if err != nil {
		return core.Report{}, err
	}

	return report, nil
}
