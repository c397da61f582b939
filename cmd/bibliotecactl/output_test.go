package main

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friedgreenrepos/biblioteca/core"
)

func Test_LoanOutput_RendersStateNamesAndOmitsUnsetDates(t *testing.T) {
	loan := core.Loan{
		ID:          uuid.New(),
		MemberID:    uuid.New(),
		BookID:      uuid.New(),
		State:       core.LoanRequested,
		RequestedAt: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	}

	encoded, err := json.Marshal(loanOutputFrom(loan))
	require.NoError(t, err)

	assert.Contains(t, string(encoded), `"state":"requested"`)
	assert.NotContains(t, string(encoded), "due_at", "unset dates must be omitted")
	assert.NotContains(t, string(encoded), "0001-01-01")
}

func Test_MemberOutput_OmitsSuspensionWhenNeverSuspended(t *testing.T) {
	member := core.Member{ID: uuid.New(), Name: "Ada Lovelace"}

	encoded, err := json.Marshal(memberOutputFrom(member))
	require.NoError(t, err)

	assert.NotContains(t, string(encoded), "suspension_start")
	assert.NotContains(t, string(encoded), "suspension_end")
}

func Test_ReportOutput_RendersKindName(t *testing.T) {
	report := core.Report{
		ID:        uuid.New(),
		MemberID:  uuid.New(),
		Kind:      core.ReportDamage,
		CreatedAt: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	}

	encoded, err := json.Marshal(reportOutputFrom(report))
	require.NoError(t, err)

	assert.Contains(t, string(encoded), `"kind":"damage"`)
}
