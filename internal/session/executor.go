package session

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rickchristie/supabase-schema-mcp/internal/protection"
)

// Row is one result row keyed by column name.
type Row = map[string]any

// Executor runs read-only catalog queries on connections from a Manager.
// Each call acquires its own connection and releases it before returning.
type Executor struct {
	sessions *Manager
	guard    *protection.Checker
}

func NewExecutor(sessions *Manager) *Executor {
	return &Executor{
		sessions: sessions,
		guard:    protection.NewChecker(),
	}
}

// FetchAll runs sql with positional args and returns every row in order.
// The result is never nil.
func (e *Executor) FetchAll(ctx context.Context, sql string, args ...any) ([]Row, error) {
	if err := e.guard.Check(sql); err != nil {
		return nil, fmt.Errorf("statement rejected: %w", err)
	}

	conn, err := e.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, &QueryError{Err: err}
	}
	result, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, &QueryError{Err: err}
	}
	if result == nil {
		result = []Row{}
	}
	return result, nil
}

// FetchOne returns the first row, or nil when the query yields no rows.
func (e *Executor) FetchOne(ctx context.Context, sql string, args ...any) (Row, error) {
	rows, err := e.FetchAll(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}
