package schemamcp_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/rickchristie/govner/pgflock/client"
	"github.com/rs/zerolog"

	schemamcp "github.com/rickchristie/supabase-schema-mcp"
)

const (
	pgflockLockerPort = 9776
	pgflockPassword   = "pgflock"
)

func acquireTestDB(t *testing.T) string {
	t.Helper()
	connStr, err := client.Lock(pgflockLockerPort, t.Name(), pgflockPassword)
	if err != nil {
		t.Fatalf("Failed to acquire test database: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Unlock(pgflockLockerPort, pgflockPassword, connStr)
	})
	return connStr
}

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

// connectionFromConnString splits a pgflock connection string into the
// discrete settings the engine takes.
func connectionFromConnString(t *testing.T, connStr string) schemamcp.ConnectionConfig {
	t.Helper()
	parsed, err := pgx.ParseConfig(connStr)
	if err != nil {
		t.Fatalf("Failed to parse connection string: %v", err)
	}
	sslMode := "disable"
	if parsed.TLSConfig != nil {
		sslMode = "require"
	}
	return schemamcp.ConnectionConfig{
		Host:     parsed.Host,
		Port:     int(parsed.Port),
		DBName:   parsed.Database,
		User:     parsed.User,
		Password: parsed.Password,
		SSLMode:  sslMode,
	}
}

// newTestEngine locks a test database, runs the setup statements on it with a
// writable connection, and returns a read-only engine pointed at it.
func newTestEngine(t *testing.T, setup ...string) *schemamcp.SchemaMcp {
	t.Helper()
	return newTestEngineWithConfig(t, nil, setup...)
}

// newTestEngineWithConfig is newTestEngine with modify applied to the default
// config before the engine is built.
func newTestEngineWithConfig(t *testing.T, modify func(*schemamcp.Config), setup ...string) *schemamcp.SchemaMcp {
	t.Helper()
	connStr := acquireTestDB(t)
	ctx := context.Background()

	if len(setup) > 0 {
		conn, err := pgx.Connect(ctx, connStr)
		if err != nil {
			t.Fatalf("Failed to connect for setup: %v", err)
		}
		defer conn.Close(ctx)
		for _, sql := range setup {
			if _, err := conn.Exec(ctx, sql); err != nil {
				t.Fatalf("Failed to run setup SQL %q: %v", sql, err)
			}
		}
	}

	config := schemamcp.DefaultConfig()
	config.Connection = connectionFromConnString(t, connStr)
	if modify != nil {
		modify(&config)
	}
	engine := schemamcp.New(config, testLogger())
	t.Cleanup(func() { engine.Close(ctx) })
	return engine
}
