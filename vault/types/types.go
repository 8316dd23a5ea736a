// Package types defines the minimal database interfaces shared by the
// vault container and in-memory vault store layers, so they can operate
// transparently over a *sql.DB, *sql.Conn, or *sql.Tx.
package types

import (
	"context"
	"database/sql"
)

// CoreDB defines a minimal database interface for executing SQL queries.
type CoreDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DBTX defines a database interface that supports query execution and transactions.
type DBTX interface {
	CoreDB
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
