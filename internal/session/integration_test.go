//go:build integration

package session

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// startPostgres runs a throwaway PostgreSQL container and returns a Config
// pointing at it.
func startPostgres(t *testing.T) Config {
	t.Helper()
	ctx := t.Context()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	assert.NoError(t, err)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	assert.NoError(t, err)
	parsed, err := pgx.ParseConfig(connStr)
	assert.NoError(t, err)

	return Config{
		Host:     parsed.Host,
		Port:     int(parsed.Port),
		Database: parsed.Database,
		User:     parsed.User,
		Password: parsed.Password,
		SSLMode:  "disable",
		ReadOnly: true,
	}
}

func TestReadOnlySessionRejectsWrites(t *testing.T) {
	cfg := startPostgres(t)
	m := NewManager(cfg, testLogger())
	defer m.Shutdown()
	ctx := t.Context()

	assert.NoError(t, m.Init(ctx))

	conn, err := m.Acquire(ctx)
	assert.NoError(t, err)
	defer conn.Release()

	// The executor guard would refuse this statement, so go through the raw
	// connection to prove the session itself is read-only.
	rows, err := conn.Query(ctx, "CREATE TABLE should_fail (id int)")
	if err == nil {
		rows.Close()
		err = rows.Err()
	}
	var pgErr *pgconn.PgError
	assert.True(t, errors.As(err, &pgErr), "expected a PostgreSQL error, got %v", err)
	assert.Equal(t, "25006", pgErr.Code)
}

func TestExecutorAgainstPostgres(t *testing.T) {
	cfg := startPostgres(t)
	m := NewManager(cfg, testLogger())
	defer m.Shutdown()
	e := NewExecutor(m)
	ctx := t.Context()

	rows, err := e.FetchAll(ctx,
		"SELECT nspname::text AS schema FROM pg_catalog.pg_namespace WHERE nspname = $1",
		"public")
	assert.NoError(t, err)
	assert.Equal(t, []Row{{"schema": "public"}}, rows)

	row, err := e.FetchOne(ctx,
		"SELECT nspname::text AS schema FROM pg_catalog.pg_namespace WHERE nspname = $1",
		"does_not_exist")
	assert.NoError(t, err)
	assert.Zero(t, row)

	_, err = e.FetchAll(ctx, "SELECT * FROM missing_relation")
	var queryErr *QueryError
	assert.True(t, errors.As(err, &queryErr))
	var pgErr *pgconn.PgError
	assert.True(t, errors.As(err, &pgErr))
	assert.Equal(t, "42P01", pgErr.Code)
}

func TestWrongPasswordIsConnectionError(t *testing.T) {
	cfg := startPostgres(t)
	cfg.Password = "wrong"
	m := NewManager(cfg, testLogger())
	defer m.Shutdown()

	err := m.Init(t.Context())
	var connErr *ConnectionError
	assert.True(t, errors.As(err, &connErr), "expected ConnectionError, got %v", err)
	assert.False(t, m.Initialized())
}
