// Package dbx holds the small database seam shared by all repositories:
// the DBTX interface, satisfied by both *sql.DB and *sql.Tx, and the WithTx
// helper that repositories' callers use to group writes into one transaction.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql that repositories need. Passing a
// *sql.Tx here runs the repository inside an enclosing transaction; passing
// a *sql.DB runs each statement standalone.
type DBTX interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// WithTx runs fn inside a transaction started on db. The transaction commits
// when fn returns nil and rolls back when it returns an error or panics;
// panics are rethrown after the rollback.
//
// fn receives the transactional handle as a DBTX, so repository constructors
// can be bound to it directly:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    return repos.Balances(tx).CreateDefault(ctx, uid, 0, 0)
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}
