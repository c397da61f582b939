package postgresstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/friedgreenrepos/biblioteca/core"
	"github.com/friedgreenrepos/biblioteca/postgresstore/internal/adapters"
	"github.com/friedgreenrepos/biblioteca/storage"
)

const (
	tableMembers = "members"
	tableBooks   = "books"
	tableLoans   = "loans"
	tableReports = "reports"

	colID              = "id"
	colName            = "name"
	colTitle           = "title"
	colActiveLoans     = "active_loans"
	colPendingRequests = "pending_requests"
	colSuspensionStart = "suspension_start"
	colSuspensionEnd   = "suspension_end"
	colMemberID        = "member_id"
	colBookID          = "book_id"
	colState           = "state"
	colRequestedAt     = "requested_at"
	colStartedAt       = "started_at"
	colDueAt           = "due_at"
	colReturnedAt      = "returned_at"
	colKind            = "kind"
	colDescription     = "description"
	colCreatedAt       = "created_at"

	aliasCount      = "state_count"
	dialectPostgres = "postgres"

	logMsgSQLExecuted = "executed sql"
	logAttrQuery      = "query"
	logAttrError      = "error"
)

var dialect = goqu.Dialect(dialectPostgres)

// Logger interface for SQL query logging and error reporting.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// PostgresStore implements storage.Store on a PostgreSQL database.
type PostgresStore struct {
	db     adapters.DBAdapter
	logger Logger
}

// NewPostgresStoreFromPGXPool creates a store backed by a pgx pool.
func NewPostgresStoreFromPGXPool(pool *pgxpool.Pool, options ...Option) (*PostgresStore, error) {
	if pool == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newPostgresStore(adapters.NewPGXAdapter(pool), options...)
}

// NewPostgresStoreFromSQLDB creates a store backed by a database/sql pool.
func NewPostgresStoreFromSQLDB(db *sql.DB, options ...Option) (*PostgresStore, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newPostgresStore(adapters.NewSQLAdapter(db), options...)
}

// NewPostgresStoreFromSQLX creates a store backed by an sqlx pool.
func NewPostgresStoreFromSQLX(db *sqlx.DB, options ...Option) (*PostgresStore, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newPostgresStore(adapters.NewSQLXAdapter(db), options...)
}

func newPostgresStore(db adapters.DBAdapter, options ...Option) (*PostgresStore, error) {
	s := &PostgresStore{db: db}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *PostgresStore) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin postgres transaction: %w", err)
	}

	return &postgresTx{env: execEnv{db: tx, logger: s.logger}, tx: tx}, nil
}

func (s *PostgresStore) GetMember(ctx context.Context, id uuid.UUID) (core.Member, error) {
	return getMember(ctx, s.env(), id, false)
}

func (s *PostgresStore) GetBook(ctx context.Context, id uuid.UUID) (core.Book, error) {
	return getBook(ctx, s.env(), id)
}

func (s *PostgresStore) GetLoan(ctx context.Context, id uuid.UUID) (core.Loan, error) {
	return getLoan(ctx, s.env(), id, false)
}

func (s *PostgresStore) ListLoansByMember(ctx context.Context, memberID uuid.UUID) ([]core.Loan, error) {
	query, _, err := dialect.From(tableLoans).
		Select(loanColumns()...).
		Where(goqu.C(colMemberID).Eq(memberID.String())).
		Order(goqu.C(colRequestedAt).Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list loans query: %w", err)
	}

	rows, err := s.env().query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, s.logger)

	var loans []core.Loan
	for rows.Next() {
		loan, scanErr := scanLoan(rows)
		if scanErr != nil {
			return nil, scanErr
		}

		loans = append(loans, loan)
	}

	return loans, nil
}

func (s *PostgresStore) InsertMember(ctx context.Context, member core.Member) error {
	query, _, err := dialect.Insert(tableMembers).Rows(memberRecord(member)).ToSQL()
	if err != nil {
		return fmt.Errorf("build insert member query: %w", err)
	}

	_, err = s.env().exec(ctx, query)

	return err
}

func (s *PostgresStore) InsertBook(ctx context.Context, book core.Book) error {
	query, _, err := dialect.Insert(tableBooks).
		Rows(goqu.Record{colID: book.ID.String(), colTitle: book.Title}).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build insert book query: %w", err)
	}

	_, err = s.env().exec(ctx, query)

	return err
}

func (s *PostgresStore) env() execEnv {
	return execEnv{db: s.db, logger: s.logger}
}

// postgresTx implements storage.Tx on a single database transaction. The
// NOWAIT row locks live for the lifetime of the transaction; Postgres
// releases them on commit or rollback.
type postgresTx struct {
	env execEnv
	tx  adapters.DBTx
}

func (t *postgresTx) LockMember(ctx context.Context, id uuid.UUID) (core.Member, error) {
	return getMember(ctx, t.env, id, true)
}

func (t *postgresTx) LockLoan(ctx context.Context, id uuid.UUID) (core.Loan, error) {
	return getLoan(ctx, t.env, id, true)
}

func (t *postgresTx) GetLoan(ctx context.Context, id uuid.UUID) (core.Loan, error) {
	return getLoan(ctx, t.env, id, false)
}

func (t *postgresTx) GetBook(ctx context.Context, id uuid.UUID) (core.Book, error) {
	return getBook(ctx, t.env, id)
}

func (t *postgresTx) FindOpenLoan(ctx context.Context, memberID, bookID uuid.UUID) (core.Loan, bool, error) {
	query, _, err := dialect.From(tableLoans).
		Select(loanColumns()...).
		Where(
			goqu.C(colMemberID).Eq(memberID.String()),
			goqu.C(colBookID).Eq(bookID.String()),
			goqu.C(colState).In(core.OpenLoanStateCodes()),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return core.Loan{}, false, fmt.Errorf("build find open loan query: %w", err)
	}

	rows, err := t.env.query(ctx, query)
	if err != nil {
		return core.Loan{}, false, err
	}
	defer closeRows(rows, t.env.logger)

	if !rows.Next() {
		return core.Loan{}, false, nil
	}

	loan, err := scanLoan(rows)
	if err != nil {
		return core.Loan{}, false, err
	}

	return loan, true, nil
}

func (t *postgresTx) CountOpenLoans(ctx context.Context, memberID uuid.UUID) (int, int, error) {
	query, _, err := dialect.From(tableLoans).
		Select(colState, goqu.COUNT(goqu.Star()).As(aliasCount)).
		Where(
			goqu.C(colMemberID).Eq(memberID.String()),
			goqu.C(colState).In(core.OpenLoanStateCodes()),
		).
		GroupBy(colState).
		ToSQL()
	if err != nil {
		return 0, 0, fmt.Errorf("build count open loans query: %w", err)
	}

	rows, err := t.env.query(ctx, query)
	if err != nil {
		return 0, 0, err
	}
	defer closeRows(rows, t.env.logger)

	var requested, active int
	for rows.Next() {
		var code string
		var count int

		if err := rows.Scan(&code, &count); err != nil {
			return 0, 0, fmt.Errorf("scan open loan count: %w", err)
		}

		state, stateErr := core.LoanStateFromCode(code)
		if stateErr != nil {
			return 0, 0, stateErr
		}

		switch state {
		case core.LoanRequested:
			requested = count
		case core.LoanActive:
			active = count
		}
	}

	return requested, active, nil
}

func (t *postgresTx) InsertLoan(ctx context.Context, loan core.Loan) error {
	query, _, err := dialect.Insert(tableLoans).Rows(loanRecord(loan)).ToSQL()
	if err != nil {
		return fmt.Errorf("build insert loan query: %w", err)
	}

	_, err = t.env.exec(ctx, query)

	return err
}

func (t *postgresTx) UpdateLoan(ctx context.Context, loan core.Loan) error {
	record := loanRecord(loan)
	delete(record, colID)

	query, _, err := dialect.Update(tableLoans).
		Set(record).
		Where(goqu.C(colID).Eq(loan.ID.String())).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update loan query: %w", err)
	}

	return t.execExpectingRow(ctx, query, storage.ErrLoanNotFound)
}

func (t *postgresTx) DeleteLoan(ctx context.Context, id uuid.UUID) error {
	query, _, err := dialect.Delete(tableLoans).
		Where(goqu.C(colID).Eq(id.String())).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete loan query: %w", err)
	}

	return t.execExpectingRow(ctx, query, storage.ErrLoanNotFound)
}

func (t *postgresTx) UpdateMember(ctx context.Context, member core.Member) error {
	record := memberRecord(member)
	delete(record, colID)

	query, _, err := dialect.Update(tableMembers).
		Set(record).
		Where(goqu.C(colID).Eq(member.ID.String())).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update member query: %w", err)
	}

	return t.execExpectingRow(ctx, query, storage.ErrMemberNotFound)
}

func (t *postgresTx) InsertReport(ctx context.Context, report core.Report) error {
	query, _, err := dialect.Insert(tableReports).
		Rows(goqu.Record{
			colID:          report.ID.String(),
			colMemberID:    report.MemberID.String(),
			colKind:        report.Kind.Code(),
			colDescription: report.Description,
			colCreatedAt:   report.CreatedAt,
		}).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build insert report query: %w", err)
	}

	if _, err := t.env.exec(ctx, query); err != nil {
		return mapReportInsertError(err)
	}

	return nil
}

func (t *postgresTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *postgresTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// execExpectingRow runs a mutation that must hit exactly the targeted row and
// maps a zero-row result to the entity's not-found error.
func (t *postgresTx) execExpectingRow(ctx context.Context, query string, missing error) error {
	result, err := t.env.exec(ctx, query)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return missing
	}

	return nil
}

// execEnv pairs a query runner (pool or transaction) with the store logger so
// the shared read helpers work in both scopes.
type execEnv struct {
	db     dbRunner
	logger Logger
}

type dbRunner interface {
	Query(ctx context.Context, query string) (adapters.DBRows, error)
	Exec(ctx context.Context, query string) (adapters.DBResult, error)
}

func (e execEnv) query(ctx context.Context, query string) (adapters.DBRows, error) {
	e.debugSQL(query)

	rows, err := e.db.Query(ctx, query)
	if err != nil {
		return nil, mapLockError(err)
	}

	return rows, nil
}

func (e execEnv) exec(ctx context.Context, query string) (adapters.DBResult, error) {
	e.debugSQL(query)

	result, err := e.db.Exec(ctx, query)
	if err != nil {
		return nil, mapLockError(err)
	}

	return result, nil
}

func (e execEnv) debugSQL(query string) {
	if e.logger != nil {
		e.logger.Debug(logMsgSQLExecuted, logAttrQuery, query)
	}
}

func getMember(ctx context.Context, env execEnv, id uuid.UUID, lock bool) (core.Member, error) {
	ds := dialect.From(tableMembers).
		Select(colID, colName, colActiveLoans, colPendingRequests, colSuspensionStart, colSuspensionEnd).
		Where(goqu.C(colID).Eq(id.String()))

	if lock {
		ds = ds.ForUpdate(exp.NoWait)
	}

	query, _, err := ds.ToSQL()
	if err != nil {
		return core.Member{}, fmt.Errorf("build select member query: %w", err)
	}

	rows, err := env.query(ctx, query)
	if err != nil {
		return core.Member{}, err
	}
	defer closeRows(rows, env.logger)

	if !rows.Next() {
		return core.Member{}, storage.ErrMemberNotFound
	}

	var (
		idText                         string
		member                         core.Member
		suspensionStart, suspensionEnd sql.NullTime
	)

	if err := rows.Scan(
		&idText,
		&member.Name,
		&member.ActiveLoans,
		&member.PendingRequests,
		&suspensionStart,
		&suspensionEnd,
	); err != nil {
		return core.Member{}, fmt.Errorf("scan member row: %w", err)
	}

	member.ID, err = uuid.Parse(idText)
	if err != nil {
		return core.Member{}, fmt.Errorf("parse member id: %w", err)
	}

	member.SuspensionStart = timeOrZero(suspensionStart)
	member.SuspensionEnd = timeOrZero(suspensionEnd)

	return member, nil
}

func getBook(ctx context.Context, env execEnv, id uuid.UUID) (core.Book, error) {
	query, _, err := dialect.From(tableBooks).
		Select(colID, colTitle).
		Where(goqu.C(colID).Eq(id.String())).
		ToSQL()
	if err != nil {
		return core.Book{}, fmt.Errorf("build select book query: %w", err)
	}

	rows, err := env.query(ctx, query)
	if err != nil {
		return core.Book{}, err
	}
	defer closeRows(rows, env.logger)

	if !rows.Next() {
		return core.Book{}, storage.ErrBookNotFound
	}

	var idText string
	var book core.Book

	if err := rows.Scan(&idText, &book.Title); err != nil {
		return core.Book{}, fmt.Errorf("scan book row: %w", err)
	}

	book.ID, err = uuid.Parse(idText)
	if err != nil {
		return core.Book{}, fmt.Errorf("parse book id: %w", err)
	}

	return book, nil
}

func getLoan(ctx context.Context, env execEnv, id uuid.UUID, lock bool) (core.Loan, error) {
	ds := dialect.From(tableLoans).
		Select(loanColumns()...).
		Where(goqu.C(colID).Eq(id.String()))

	if lock {
		ds = ds.ForUpdate(exp.NoWait)
	}

	query, _, err := ds.ToSQL()
	if err != nil {
		return core.Loan{}, fmt.Errorf("build select loan query: %w", err)
	}

	rows, err := env.query(ctx, query)
	if err != nil {
		return core.Loan{}, err
	}
	defer closeRows(rows, env.logger)

	if !rows.Next() {
		return core.Loan{}, storage.ErrLoanNotFound
	}

	return scanLoan(rows)
}

func loanColumns() []any {
	return []any{colID, colMemberID, colBookID, colState, colRequestedAt, colStartedAt, colDueAt, colReturnedAt}
}

func scanLoan(rows adapters.DBRows) (core.Loan, error) {
	var (
		idText, memberText, bookText, stateCode string
		startedAt, dueAt, returnedAt            sql.NullTime
		loan                                    core.Loan
	)

	if err := rows.Scan(
		&idText,
		&memberText,
		&bookText,
		&stateCode,
		&loan.RequestedAt,
		&startedAt,
		&dueAt,
		&returnedAt,
	); err != nil {
		return core.Loan{}, fmt.Errorf("scan loan row: %w", err)
	}

	var err error
	if loan.ID, err = uuid.Parse(idText); err != nil {
		return core.Loan{}, fmt.Errorf("parse loan id: %w", err)
	}
	if loan.MemberID, err = uuid.Parse(memberText); err != nil {
		return core.Loan{}, fmt.Errorf("parse loan member id: %w", err)
	}
	if loan.BookID, err = uuid.Parse(bookText); err != nil {
		return core.Loan{}, fmt.Errorf("parse loan book id: %w", err)
	}
	if loan.State, err = core.LoanStateFromCode(stateCode); err != nil {
		return core.Loan{}, err
	}

	loan.StartedAt = timeOrZero(startedAt)
	loan.DueAt = timeOrZero(dueAt)
	loan.ReturnedAt = timeOrZero(returnedAt)

	return loan, nil
}

func memberRecord(member core.Member) goqu.Record {
	return goqu.Record{
		colID:              member.ID.String(),
		colName:            member.Name,
		colActiveLoans:     member.ActiveLoans,
		colPendingRequests: member.PendingRequests,
		colSuspensionStart: nullableTime(member.SuspensionStart),
		colSuspensionEnd:   nullableTime(member.SuspensionEnd),
	}
}

func loanRecord(loan core.Loan) goqu.Record {
	return goqu.Record{
		colID:          loan.ID.String(),
		colMemberID:    loan.MemberID.String(),
		colBookID:      loan.BookID.String(),
		colState:       loan.State.Code(),
		colRequestedAt: loan.RequestedAt,
		colStartedAt:   nullableTime(loan.StartedAt),
		colDueAt:       nullableTime(loan.DueAt),
		colReturnedAt:  nullableTime(loan.ReturnedAt),
	}
}

// nullableTime maps the zero time to SQL NULL.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}

	return t
}

func timeOrZero(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}

	return t.Time.UTC()
}

func closeRows(rows adapters.DBRows, logger Logger) {
	if err := rows.Close(); err != nil && logger != nil {
		logger.Warn("failed to close database rows", logAttrError, err.Error())
	}
}
