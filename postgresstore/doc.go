// Package postgresstore implements storage.Store on PostgreSQL. Row locks use
// SELECT ... FOR UPDATE NOWAIT, so a transaction that races another operator
// for the same member or loan fails immediately with storage.ErrResourceBusy
// instead of queueing on the row.
//
// The store runs on pgx, database/sql or sqlx through a small internal
// adapter layer; queries are built with goqu and executed as interpolated
// SQL.
package postgresstore
