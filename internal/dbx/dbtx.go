// Package dbx holds what the repositories share about the database: the
// DBTX handle accepted by every repository, the transaction scope that owns
// a unit of work, and the SQL differences between SQLite and PostgreSQL.
package dbx

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/driveindex/internal/common"
)

// DBTX is satisfied by *sql.DB and *sql.Tx, so a repository built over it
// runs the same statements in or out of a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn inside one transaction. The transaction is committed when
// fn returns nil and rolled back when fn fails or panics; a panic is
// re-raised after the rollback.
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    if _, err := rm.Tags(tx).DeleteAll(ctx, drive, file); err != nil {
//	        return err
//	    }
//	    _, err := rm.MainIndex(tx).Delete(ctx, drive, file)
//	    return err
//	})
//
// Errors from fn come back unchanged. Begin and commit failures match
// common.ErrStorage.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return common.Storage("begin tx", err)
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
		err = common.Storage("commit tx", tx.Commit())
	}()

	return fn(ctx, tx)
}
