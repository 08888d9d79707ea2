package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	DefaultPort           = 5432
	DefaultMaxConns       = 5
	DefaultConnectTimeout = 30 * time.Second
	applicationName       = "sbschemamcp"
)

// Config holds connection settings for the pool. A zero MaxConns or
// ConnectTimeout falls back to the package default; MinConns is used as is.
type Config struct {
	Host           string
	Port           int
	Database       string
	User           string
	Password       string
	SSLMode        string
	ReadOnly       bool
	MinConns       int32
	MaxConns       int32
	ConnectTimeout time.Duration
}

// Conn is a pooled connection. *pgxpool.Conn satisfies it.
type Conn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Release()
}

// Pool is the subset of *pgxpool.Pool the manager uses.
type Pool interface {
	Acquire(ctx context.Context) (Conn, error)
	Ping(ctx context.Context) error
	Close()
}

// PoolFactory creates a pool from a fully populated pgxpool config.
type PoolFactory func(ctx context.Context, cfg *pgxpool.Config) (Pool, error)

type pgxPool struct {
	pool *pgxpool.Pool
}

func (p *pgxPool) Acquire(ctx context.Context) (Conn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (p *pgxPool) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *pgxPool) Close() { p.pool.Close() }

// NewPgxPool is the default PoolFactory.
func NewPgxPool(ctx context.Context, cfg *pgxpool.Config) (Pool, error) {
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &pgxPool{pool: pool}, nil
}

// Option is a functional option for NewManager.
type Option func(*Manager)

// WithPoolFactory replaces the pgxpool-backed factory.
func WithPoolFactory(f PoolFactory) Option {
	return func(m *Manager) {
		m.factory = f
	}
}

// Manager owns the single connection pool of a process. The pool is created
// on first use or by Init, and discarded by Shutdown.
// All exported methods are safe for concurrent use. Callers waiting on another
// caller's pool creation give up when their own context ends.
type Manager struct {
	config  Config
	factory PoolFactory
	logger  zerolog.Logger

	// creating holds one token while a pool is being created.
	creating chan struct{}

	mu   sync.Mutex
	pool Pool
}

// NewManager creates a Manager. No connection is made until Init or Acquire.
func NewManager(config Config, logger zerolog.Logger, opts ...Option) *Manager {
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	if config.MaxConns == 0 {
		config.MaxConns = DefaultMaxConns
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	m := &Manager{
		config:   config,
		factory:  NewPgxPool,
		logger:   logger,
		creating: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init creates the pool if it does not exist yet and verifies connectivity.
// Concurrent callers share one pool.
func (m *Manager) Init(ctx context.Context) error {
	_, err := m.getPool(ctx)
	return err
}

// Initialized reports whether a pool currently exists.
func (m *Manager) Initialized() bool {
	return m.current() != nil
}

func (m *Manager) current() Pool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pool
}

// Acquire returns a connection from the pool, creating the pool first if
// needed. The caller must Release the connection.
func (m *Manager) Acquire(ctx context.Context) (Conn, error) {
	pool, err := m.getPool(ctx)
	if err != nil {
		return nil, err
	}
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, &ConnectionError{Err: fmt.Errorf("failed to acquire connection: %w", err)}
	}
	return conn, nil
}

// Ping checks that the database is reachable.
func (m *Manager) Ping(ctx context.Context) error {
	pool, err := m.getPool(ctx)
	if err != nil {
		return err
	}
	if err := pool.Ping(ctx); err != nil {
		return &ConnectionError{Err: err}
	}
	return nil
}

// Shutdown closes the pool. A later Acquire or Init creates a new one.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pool == nil {
		return
	}
	m.pool.Close()
	m.pool = nil
	m.logger.Info().Msg("connection pool closed")
}

func (m *Manager) getPool(ctx context.Context) (Pool, error) {
	if pool := m.current(); pool != nil {
		return pool, nil
	}

	select {
	case m.creating <- struct{}{}:
	case <-ctx.Done():
		return nil, &ConnectionError{Err: fmt.Errorf("waiting for connection pool: %w", ctx.Err())}
	}
	defer func() { <-m.creating }()
	if pool := m.current(); pool != nil {
		return pool, nil
	}

	if err := m.validate(); err != nil {
		return nil, err
	}
	poolConfig, err := m.poolConfig()
	if err != nil {
		return nil, &ConnectionError{Err: fmt.Errorf("failed to parse connection settings: %w", err)}
	}

	startTime := time.Now()
	pool, err := m.factory(ctx, poolConfig)
	if err != nil {
		return nil, &ConnectionError{Err: fmt.Errorf("failed to create connection pool: %w", err)}
	}
	// pgxpool connects lazily; ping so a bad host fails here and not on the
	// first catalog query.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &ConnectionError{Err: err}
	}
	m.mu.Lock()
	m.pool = pool
	m.mu.Unlock()

	m.logger.Info().
		Str("host", m.config.Host).
		Int("port", m.config.Port).
		Str("database", m.config.Database).
		Bool("read_only", m.config.ReadOnly).
		Int32("max_conns", m.config.MaxConns).
		Dur("duration", time.Since(startTime)).
		Msg("connection pool created")
	return pool, nil
}

func (m *Manager) validate() error {
	var missing []string
	if m.config.Host == "" {
		missing = append(missing, "host")
	}
	if m.config.Database == "" {
		missing = append(missing, "database")
	}
	if m.config.User == "" {
		missing = append(missing, "user")
	}
	if m.config.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}

func (m *Manager) poolConfig() (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(ConnString(m.config))
	if err != nil {
		return nil, err
	}
	poolConfig.MinConns = m.config.MinConns
	poolConfig.MaxConns = m.config.MaxConns
	poolConfig.ConnConfig.ConnectTimeout = m.config.ConnectTimeout
	// Catalog queries differ on every call; skip the prepared statement cache.
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	if m.config.ReadOnly {
		poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			if _, err := conn.Exec(ctx, "SET default_transaction_read_only = on"); err != nil {
				return fmt.Errorf("failed to SET default_transaction_read_only: %w", err)
			}
			return nil
		}
	}
	return poolConfig, nil
}

// ConnString renders the config as a libpq keyword/value connection string.
func ConnString(c Config) string {
	pairs := []struct{ key, value string }{
		{"host", c.Host},
		{"port", strconv.Itoa(c.Port)},
		{"dbname", c.Database},
		{"user", c.User},
		{"password", c.Password},
		{"sslmode", c.SSLMode},
		{"application_name", applicationName},
	}
	var parts []string
	for _, p := range pairs {
		if p.value == "" {
			continue
		}
		parts = append(parts, p.key+"="+quoteValue(p.value))
	}
	return strings.Join(parts, " ")
}

func quoteValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
