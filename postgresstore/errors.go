package postgresstore

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/friedgreenrepos/biblioteca/storage"
)

// Postgres error codes the store translates into contract errors.
const (
	pgCodeLockNotAvailable    = "55P03" // SELECT ... FOR UPDATE NOWAIT lost the race
	pgCodeForeignKeyViolation = "23503"
)

// pgErrorCode extracts the SQLSTATE from whichever driver produced the error.
func pgErrorCode(err error) string {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}

	return ""
}

// mapLockError turns a NOWAIT lock failure into storage.ErrResourceBusy and
// passes everything else through.
func mapLockError(err error) error {
	if pgErrorCode(err) == pgCodeLockNotAvailable {
		return storage.ErrResourceBusy
	}

	return err
}

// mapReportInsertError turns a foreign key violation on the reports table
// into storage.ErrMemberNotFound; a report can only dangle off its member.
func mapReportInsertError(err error) error {
	if pgErrorCode(err) == pgCodeForeignKeyViolation {
		return storage.ErrMemberNotFound
	}

	return err
}
