package session

import (
	"fmt"
	"strings"
)

// ConfigurationError reports required connection settings that are missing.
// It is returned before any pool construction or network activity.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("database not configured: missing %s", strings.Join(e.Missing, ", "))
}

// ConnectionError wraps pool creation, ping, and connection acquisition failures.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("database connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// QueryError wraps an error raised by the database while running a query,
// including read-only violations and statement timeouts. The driver error
// (usually *pgconn.PgError) is reachable through errors.As.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
