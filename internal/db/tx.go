package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Queryer is satisfied by *sql.DB and *sql.Tx.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx starts a transaction, runs fn, and commits if fn returns nil.
// If fn returns an error or panics, the transaction is rolled back; the
// transaction is finished on every path.
//
//	err := db.WithTx(ctx, h, func(tx *sql.Tx) error {
//	    _, err := tx.ExecContext(ctx, ...)
//	    return err
//	})
func WithTx(ctx context.Context, h *sql.DB, fn func(*sql.Tx) error) (err error) {
	if h == nil {
		return errors.New("db: handle is nil")
	}
	tx, err := h.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: begin tx: %w", err)
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
		if e := tx.Commit(); e != nil {
			err = fmt.Errorf("db: commit: %w", e)
		}
	}()
	err = fn(tx)
	return
}
