package postgresstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friedgreenrepos/biblioteca/core"
	"github.com/friedgreenrepos/biblioteca/engine"
	"github.com/friedgreenrepos/biblioteca/postgresstore"
	"github.com/friedgreenrepos/biblioteca/storage"
	"github.com/friedgreenrepos/biblioteca/testutil"
)

const testDatabaseURLEnv = "BIBLIOTECA_TEST_DATABASE_URL"

// givenStore connects to the database named by BIBLIOTECA_TEST_DATABASE_URL
// and applies the schema; without the variable the integration tests skip.
func givenStore(t *testing.T) *postgresstore.PostgresStore {
	t.Helper()

	dsn := os.Getenv(testDatabaseURLEnv)
	if dsn == "" {
		t.Skipf("set %s to run postgres integration tests", testDatabaseURLEnv)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store, err := postgresstore.NewPostgresStoreFromPGXPool(pool)
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(ctx))

	return store
}

func Test_Postgres_LoanLifecycleRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := givenStore(t)

	member := core.Member{ID: uuid.New(), Name: "integration member"}
	book := core.Book{ID: uuid.New(), Title: "integration book"}
	require.NoError(t, store.InsertMember(ctx, member))
	require.NoError(t, store.InsertBook(ctx, book))

	e, err := engine.NewEngine(store, engine.WithClock(testutil.FixedClock(testutil.Day(0))))
	require.NoError(t, err)

	loan, err := e.RequestLoan(ctx, member.ID, book.ID)
	require.NoError(t, err)

	loan, err = e.ApproveLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, core.LoanActive, loan.State)
	assert.Equal(t, testutil.Day(core.DefaultLoanDurationDays), loan.DueAt)

	loan, err = e.ReturnLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, core.LoanClosed, loan.State)
	assert.Equal(t, testutil.Day(0), loan.ReturnedAt)

	stored, err := store.GetMember(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.PendingRequests)
	assert.Equal(t, 0, stored.ActiveLoans)

	audit, err := e.ReconcileMemberCounters(ctx, member.ID, false)
	require.NoError(t, err)
	assert.False(t, audit.Drifted())
}

func Test_Postgres_MemberLockFailsFastUnderContention(t *testing.T) {
	ctx := context.Background()
	store := givenStore(t)

	member := core.Member{ID: uuid.New(), Name: "contended member"}
	require.NoError(t, store.InsertMember(ctx, member))

	first, err := store.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = first.Rollback(ctx) }()

	_, err = first.LockMember(ctx, member.ID)
	require.NoError(t, err)

	second, err := store.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = second.Rollback(ctx) }()

	_, err = second.LockMember(ctx, member.ID)
	assert.ErrorIs(t, err, storage.ErrResourceBusy)
	require.NoError(t, second.Rollback(ctx)) // the failed lock aborted this tx

	require.NoError(t, first.Rollback(ctx))

	third, err := store.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = third.Rollback(ctx) }()

	_, err = third.LockMember(ctx, member.ID)
	assert.NoError(t, err, "the lock must be free again after the holder rolled back")
}

func Test_Postgres_NullableDatesRoundTripAsZeroTimes(t *testing.T) {
	ctx := context.Background()
	store := givenStore(t)

	member := core.Member{ID: uuid.New(), Name: "nullable dates member"}
	book := core.Book{ID: uuid.New(), Title: "nullable dates book"}
	require.NoError(t, store.InsertMember(ctx, member))
	require.NoError(t, store.InsertBook(ctx, book))

	e, err := engine.NewEngine(store, engine.WithClock(testutil.FixedClock(testutil.Day(0))))
	require.NoError(t, err)

	loan, err := e.RequestLoan(ctx, member.ID, book.ID)
	require.NoError(t, err)

	stored, err := store.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, stored.StartedAt.IsZero())
	assert.True(t, stored.DueAt.IsZero())
	assert.True(t, stored.ReturnedAt.IsZero())

	storedMember, err := store.GetMember(ctx, member.ID)
	require.NoError(t, err)
	assert.True(t, storedMember.SuspensionStart.IsZero())
	assert.True(t, storedMember.SuspensionEnd.IsZero())
}

func Test_Postgres_ReportForUnknownMemberMapsToNotFound(t *testing.T) {
	ctx := context.Background()
	store := givenStore(t)

	e, err := engine.NewEngine(store, engine.WithClock(testutil.FixedClock(testutil.Day(0))))
	require.NoError(t, err)

	_, err = e.ReportMember(ctx, uuid.New(), core.ReportOther, "", false)
	assert.ErrorIs(t, err, storage.ErrMemberNotFound)
}
