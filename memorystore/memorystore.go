// Package memorystore implements storage.Store in process memory. It exists
// for tests and for trying the engine without a database, but it honors the
// full contract: exclusive non-blocking row locks, transaction staging, and
// mutations that only become visible on Commit.
package memorystore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/friedgreenrepos/biblioteca/core"
	"github.com/friedgreenrepos/biblioteca/storage"
)

// MemoryStore keeps all entities in maps guarded by a single mutex. Row locks
// are tracked per entity and held across the mutex, so a transaction that
// locked a row keeps other transactions out until it commits or rolls back.
type MemoryStore struct {
	mu sync.Mutex

	members map[uuid.UUID]core.Member
	books   map[uuid.UUID]core.Book
	loans   map[uuid.UUID]core.Loan
	reports map[uuid.UUID]core.Report

	lockedMembers map[uuid.UUID]struct{}
	lockedLoans   map[uuid.UUID]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		members:       make(map[uuid.UUID]core.Member),
		books:         make(map[uuid.UUID]core.Book),
		loans:         make(map[uuid.UUID]core.Loan),
		reports:       make(map[uuid.UUID]core.Report),
		lockedMembers: make(map[uuid.UUID]struct{}),
		lockedLoans:   make(map[uuid.UUID]struct{}),
	}
}

func (s *MemoryStore) Begin(_ context.Context) (storage.Tx, error) {
	return &memoryTx{
		store:       s,
		stagedLoans: make(map[uuid.UUID]*core.Loan),
	}, nil
}

func (s *MemoryStore) GetMember(_ context.Context, id uuid.UUID) (core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.members[id]
	if !ok {
		return core.Member{}, storage.ErrMemberNotFound
	}

	return member, nil
}

func (s *MemoryStore) GetBook(_ context.Context, id uuid.UUID) (core.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[id]
	if !ok {
		return core.Book{}, storage.ErrBookNotFound
	}

	return book, nil
}

func (s *MemoryStore) GetLoan(_ context.Context, id uuid.UUID) (core.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loan, ok := s.loans[id]
	if !ok {
		return core.Loan{}, storage.ErrLoanNotFound
	}

	return loan, nil
}

func (s *MemoryStore) ListLoansByMember(_ context.Context, memberID uuid.UUID) ([]core.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var loans []core.Loan
	for _, loan := range s.loans {
		if loan.MemberID == memberID {
			loans = append(loans, loan)
		}
	}

	sort.Slice(loans, func(i, j int) bool {
		return loans[i].RequestedAt.Before(loans[j].RequestedAt)
	})

	return loans, nil
}

func (s *MemoryStore) ListReportsByMember(_ context.Context, memberID uuid.UUID) ([]core.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reports []core.Report
	for _, report := range s.reports {
		if report.MemberID == memberID {
			reports = append(reports, report)
		}
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].CreatedAt.Before(reports[j].CreatedAt)
	})

	return reports, nil
}

func (s *MemoryStore) InsertMember(_ context.Context, member core.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.members[member.ID] = member

	return nil
}

func (s *MemoryStore) InsertBook(_ context.Context, book core.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.books[book.ID] = book

	return nil
}

// memoryTx stages every mutation and applies the lot atomically on Commit.
// Reads within the transaction see the staged state layered over the
// committed state, mirroring read-your-writes inside a database transaction.
type memoryTx struct {
	store *MemoryStore
	done  bool

	memberLocks []uuid.UUID
	loanLocks   []uuid.UUID

	stagedMembers []core.Member
	stagedLoans   map[uuid.UUID]*core.Loan // nil value marks a delete
	stagedReports []core.Report
}

func (t *memoryTx) LockMember(_ context.Context, id uuid.UUID) (core.Member, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	member, ok := t.store.members[id]
	if !ok {
		return core.Member{}, storage.ErrMemberNotFound
	}

	if _, held := t.store.lockedMembers[id]; held {
		if !t.holdsMemberLock(id) {
			return core.Member{}, storage.ErrResourceBusy
		}

		return member, nil
	}

	t.store.lockedMembers[id] = struct{}{}
	t.memberLocks = append(t.memberLocks, id)

	return member, nil
}

func (t *memoryTx) LockLoan(_ context.Context, id uuid.UUID) (core.Loan, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	loan, ok := t.loanSnapshotLocked(id)
	if !ok {
		return core.Loan{}, storage.ErrLoanNotFound
	}

	if _, held := t.store.lockedLoans[id]; held {
		if !t.holdsLoanLock(id) {
			return core.Loan{}, storage.ErrResourceBusy
		}

		return loan, nil
	}

	t.store.lockedLoans[id] = struct{}{}
	t.loanLocks = append(t.loanLocks, id)

	return loan, nil
}

func (t *memoryTx) GetLoan(_ context.Context, id uuid.UUID) (core.Loan, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	loan, ok := t.loanSnapshotLocked(id)
	if !ok {
		return core.Loan{}, storage.ErrLoanNotFound
	}

	return loan, nil
}

func (t *memoryTx) GetBook(_ context.Context, id uuid.UUID) (core.Book, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	book, ok := t.store.books[id]
	if !ok {
		return core.Book{}, storage.ErrBookNotFound
	}

	return book, nil
}

func (t *memoryTx) FindOpenLoan(_ context.Context, memberID, bookID uuid.UUID) (core.Loan, bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	for _, loan := range t.loanViewLocked() {
		if loan.MemberID == memberID && loan.BookID == bookID && loan.IsOpen() {
			return loan, true, nil
		}
	}

	return core.Loan{}, false, nil
}

func (t *memoryTx) CountOpenLoans(_ context.Context, memberID uuid.UUID) (int, int, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	var requested, active int
	for _, loan := range t.loanViewLocked() {
		if loan.MemberID != memberID {
			continue
		}

		switch loan.State {
		case core.LoanRequested:
			requested++
		case core.LoanActive:
			active++
		}
	}

	return requested, active, nil
}

func (t *memoryTx) InsertLoan(_ context.Context, loan core.Loan) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	staged := loan
	t.stagedLoans[loan.ID] = &staged

	return nil
}

func (t *memoryTx) UpdateLoan(_ context.Context, loan core.Loan) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if _, ok := t.loanSnapshotLocked(loan.ID); !ok {
		return storage.ErrLoanNotFound
	}

	staged := loan
	t.stagedLoans[loan.ID] = &staged

	return nil
}

func (t *memoryTx) DeleteLoan(_ context.Context, id uuid.UUID) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if _, ok := t.loanSnapshotLocked(id); !ok {
		return storage.ErrLoanNotFound
	}

	t.stagedLoans[id] = nil

	return nil
}

func (t *memoryTx) UpdateMember(_ context.Context, member core.Member) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if _, ok := t.store.members[member.ID]; !ok {
		return storage.ErrMemberNotFound
	}

	t.stagedMembers = append(t.stagedMembers, member)

	return nil
}

func (t *memoryTx) InsertReport(_ context.Context, report core.Report) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if _, ok := t.store.members[report.MemberID]; !ok {
		return storage.ErrMemberNotFound
	}

	t.stagedReports = append(t.stagedReports, report)

	return nil
}

func (t *memoryTx) Commit(_ context.Context) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if t.done {
		return nil
	}

	for _, member := range t.stagedMembers {
		t.store.members[member.ID] = member
	}
	for id, loan := range t.stagedLoans {
		if loan == nil {
			delete(t.store.loans, id)
			continue
		}

		t.store.loans[id] = *loan
	}
	for _, report := range t.stagedReports {
		t.store.reports[report.ID] = report
	}

	t.releaseLocksLocked()
	t.done = true

	return nil
}

func (t *memoryTx) Rollback(_ context.Context) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if t.done {
		return nil
	}

	t.releaseLocksLocked()
	t.done = true

	return nil
}

// loanSnapshotLocked resolves a single loan through the staged overlay.
// Caller must hold store.mu.
func (t *memoryTx) loanSnapshotLocked(id uuid.UUID) (core.Loan, bool) {
	if staged, ok := t.stagedLoans[id]; ok {
		if staged == nil {
			return core.Loan{}, false
		}

		return *staged, true
	}

	loan, ok := t.store.loans[id]

	return loan, ok
}

// loanViewLocked materializes the loan table as this transaction sees it.
// Caller must hold store.mu.
func (t *memoryTx) loanViewLocked() []core.Loan {
	view := make([]core.Loan, 0, len(t.store.loans)+len(t.stagedLoans))

	for id, loan := range t.store.loans {
		if staged, ok := t.stagedLoans[id]; ok {
			if staged != nil {
				view = append(view, *staged)
			}

			continue
		}

		view = append(view, loan)
	}

	for id, staged := range t.stagedLoans {
		if staged == nil {
			continue
		}
		if _, committed := t.store.loans[id]; committed {
			continue
		}

		view = append(view, *staged)
	}

	return view
}

func (t *memoryTx) holdsMemberLock(id uuid.UUID) bool {
	for _, held := range t.memberLocks {
		if held == id {
			return true
		}
	}

	return false
}

func (t *memoryTx) holdsLoanLock(id uuid.UUID) bool {
	for _, held := range t.loanLocks {
		if held == id {
			return true
		}
	}

	return false
}

func (t *memoryTx) releaseLocksLocked() {
	for _, id := range t.memberLocks {
		delete(t.store.lockedMembers, id)
	}
	for _, id := range t.loanLocks {
		delete(t.store.lockedLoans, id)
	}

	t.memberLocks = nil
	t.loanLocks = nil
}
