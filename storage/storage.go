// Package storage defines the entity store contract the loan lifecycle
// engine runs against. Implementations (Postgres, in-memory) must provide
// transactions with non-blocking row locks: a lock that cannot be acquired
// immediately fails with ErrResourceBusy instead of waiting, so contention is
// surfaced to the caller and two operations locking a member and a loan in
// different orders can never deadlock.
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/friedgreenrepos/biblioteca/core"
)

var (
	// ErrResourceBusy means a row lock could not be acquired immediately.
	// The engine never retries internally; the caller decides.
	ErrResourceBusy = errors.New("row is locked by a concurrent operation")

	ErrMemberNotFound = errors.New("member not found")
	ErrBookNotFound   = errors.New("book not found")
	ErrLoanNotFound   = errors.New("loan not found")
)

// Store is the durable home of members, books, loans and reports.
//
// The non-transactional methods are read-only snapshots for listings and
// tests; every mutation goes through a Tx. Insert* for members and books
// exist for the external registration and catalog flows (and for seeding) -
// the engine itself never creates either.
type Store interface {
	Begin(ctx context.Context) (Tx, error)

	GetMember(ctx context.Context, id uuid.UUID) (core.Member, error)
	GetBook(ctx context.Context, id uuid.UUID) (core.Book, error)
	GetLoan(ctx context.Context, id uuid.UUID) (core.Loan, error)
	ListLoansByMember(ctx context.Context, memberID uuid.UUID) ([]core.Loan, error)

	InsertMember(ctx context.Context, member core.Member) error
	InsertBook(ctx context.Context, book core.Book) error
}

// Tx is a single atomic unit of work. Locks acquired through LockMember and
// LockLoan are exclusive, fail immediately with ErrResourceBusy when the row
// is already locked, and are held until Commit or Rollback. Rollback after a
// successful Commit must be a no-op so it can run deferred.
type Tx interface {
	// LockMember acquires an exclusive try-lock on the member row and
	// returns the authoritative state as of the lock acquisition.
	LockMember(ctx context.Context, id uuid.UUID) (core.Member, error)

	// LockLoan acquires an exclusive try-lock on the loan row and returns
	// the authoritative state as of the lock acquisition.
	LockLoan(ctx context.Context, id uuid.UUID) (core.Loan, error)

	// GetLoan reads a loan without locking it, e.g. to discover the owning
	// member before taking locks in member -> loan order.
	GetLoan(ctx context.Context, id uuid.UUID) (core.Loan, error)

	// GetBook reads a book; books are read-only for the engine and are
	// never locked.
	GetBook(ctx context.Context, id uuid.UUID) (core.Book, error)

	// FindOpenLoan returns the open (requested or active) loan for the
	// (member, book) pair, if one exists.
	FindOpenLoan(ctx context.Context, memberID, bookID uuid.UUID) (core.Loan, bool, error)

	// CountOpenLoans recounts the member's loans by state from the loan
	// rows, for reconciling the denormalized counters.
	CountOpenLoans(ctx context.Context, memberID uuid.UUID) (requested int, active int, err error)

	InsertLoan(ctx context.Context, loan core.Loan) error
	UpdateLoan(ctx context.Context, loan core.Loan) error
	DeleteLoan(ctx context.Context, id uuid.UUID) error
	UpdateMember(ctx context.Context, member core.Member) error
	InsertReport(ctx context.Context, report core.Report) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
