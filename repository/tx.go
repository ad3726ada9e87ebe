package repository

import (
	"context"
	"database/sql"
	"time"

	"ticketCountManagement/internal/db"
)

const (
	shortTimeout = 3 * time.Second
	listTimeout  = 5 * time.Second
	bulkTimeout  = 15 * time.Second
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn inside a transaction, committing on success.
func withTx(ctx context.Context, h *db.Handle, fn func(tx *sql.Tx) error) error {
	tx, err := h.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// affectedOne maps an update that matched no row to sql.ErrNoRows.
func affectedOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
