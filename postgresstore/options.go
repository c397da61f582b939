package postgresstore

import "errors"

var ErrNilDatabaseConnection = errors.New("database connection must not be nil")

// Option defines a functional option for configuring the store.
type Option func(*PostgresStore) error

// WithLogger sets the logger for the store.
//
// Debug level: generated SQL (development use)
// Warn level: non-critical issues like row cleanup failures.
func WithLogger(logger Logger) Option {
	return func(s *PostgresStore) error {
		s.logger = logger
		return nil
	}
}
