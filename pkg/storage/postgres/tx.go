package postgres

import (
	"context"
	"database/sql"
)

// Querier is the subset of *sql.DB and *sql.Tx the engines need
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// WithTx runs fn inside a transaction. The transaction commits only when fn
// returns nil; any error (or panic) rolls back every statement fn issued.
// Errors from begin and commit are classified; errors returned by fn are
// returned unchanged.
func WithTx(ctx context.Context, db *sql.DB, op string, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return ClassifyError(op+": begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return ClassifyError(op+": commit", err)
	}
	return nil
}
