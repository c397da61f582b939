package postgresstore

import (
	"context"
	"fmt"
)

// Schema is the DDL for the loan tables. Loans reference their member and
// book; reports reference their member. The partial index backs the open-loan
// lookup and the counter recount.
const Schema = `
CREATE TABLE IF NOT EXISTS members (
    id uuid PRIMARY KEY,
    name text NOT NULL,
    active_loans integer NOT NULL DEFAULT 0,
    pending_requests integer NOT NULL DEFAULT 0,
    suspension_start timestamptz,
    suspension_end timestamptz
);

CREATE TABLE IF NOT EXISTS books (
    id uuid PRIMARY KEY,
    title text NOT NULL
);

CREATE TABLE IF NOT EXISTS loans (
    id uuid PRIMARY KEY,
    member_id uuid NOT NULL REFERENCES members (id),
    book_id uuid NOT NULL REFERENCES books (id),
    state text NOT NULL,
    requested_at timestamptz NOT NULL,
    started_at timestamptz,
    due_at timestamptz,
    returned_at timestamptz
);

CREATE INDEX IF NOT EXISTS loans_open_by_member_idx
    ON loans (member_id, book_id, state)
    WHERE state IN ('RC', 'IC');

CREATE TABLE IF NOT EXISTS reports (
    id uuid PRIMARY KEY,
    member_id uuid NOT NULL REFERENCES members (id),
    kind text NOT NULL,
    description text NOT NULL DEFAULT '',
    created_at timestamptz NOT NULL
);
`

// EnsureSchema creates the tables and indexes if they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.env().exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	return nil
}
