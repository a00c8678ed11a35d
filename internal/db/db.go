// Package db persists the API call cost log in Postgres. Queries follow the
// sqlc style: a DBTX interface over *sql.DB / *sql.Tx and a Queries struct
// holding the prepared operations.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/tablescout/tablescout/internal/config"
)

// DBTX is the subset of database/sql used by Queries, satisfied by both
// *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds the cost log operations.
type Queries struct {
	db DBTX
}

// New creates Queries over the given connection or transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// DB exposes the underlying connection so callers can run raw SQL when needed.
func (q *Queries) DB() DBTX {
	return q.db
}

// Init opens a Postgres connection, verifies it, and applies the statement
// timeout from config.
func Init(connStr string) (*Queries, error) {
	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	cfg := config.Load()
	if cfg.DBStatementTimeout > 0 {
		ms := cfg.DBStatementTimeout.Milliseconds()
		if _, err := conn.Exec(fmt.Sprintf("SET statement_timeout = %d", ms)); err != nil {
			return nil, fmt.Errorf("failed to set statement timeout: %w", err)
		}
	}

	return New(conn), nil
}
