package database

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"medledger/m/domain"
)

// Connect opens a SQLite database using the provided DSN. The pool holds a
// single connection, so transactions are serialized.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// WithTx runs fn inside a transaction and commits when fn returns nil. Errors
// that are not already classified are reported as storage failures.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Storage("begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		if domain.IsDomain(err) {
			return err
		}
		return domain.Storage("transaction", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Storage("commit transaction", err)
	}
	return nil
}

// IsUniqueViolation reports whether err came from a UNIQUE constraint.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
