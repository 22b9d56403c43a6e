// Package dbpool owns the process-wide database connection pool.
//
// A Manager is constructed explicitly and handed to whoever needs the
// database. The first Acquire starts exactly one connection attempt; every
// caller, concurrent or later, observes the same pool or the same error.
// A failed Manager never retries. Callers that want another attempt build a
// new Manager.
package dbpool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/attendance/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"    // registers "pgx"
	_ "github.com/microsoft/go-mssqldb" // registers "sqlserver"
)

// ErrUnsupportedDriver is returned when the database URL scheme does not map
// to a registered driver.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// ErrClosed is returned by Acquire after Close.
var ErrClosed = errors.New("connection pool closed")

// Opener opens a database handle. It matches sql.Open and exists so tests can
// substitute sqlmock.
type Opener func(driverName, dataSourceName string) (*sql.DB, error)

// Option configures a Manager.
type Option func(*Manager)

// WithOpener replaces sql.Open.
func WithOpener(open Opener) Option {
	return func(m *Manager) { m.open = open }
}

// WithLogger sets the logger used for connection events.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// Manager lazily creates and memoizes a single *sql.DB.
type Manager struct {
	cfg    config.DatabaseConfig
	open   Opener
	logger *slog.Logger

	start sync.Once
	ready chan struct{} // closed when the attempt has finished

	db      *sql.DB
	dialect Dialect
	err     error

	mu     sync.Mutex
	closed bool
}

// New constructs a Manager. It does not connect.
func New(cfg config.DatabaseConfig, opts ...Option) *Manager {
	m := &Manager{
		cfg:    cfg,
		open:   sql.Open,
		logger: slog.Default(),
		ready:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	// Dialect is known without connecting; a bad URL surfaces from Acquire.
	m.dialect, _ = DialectFor(cfg.URL)

	return m
}

// Acquire returns the shared pool, connecting on first use.
//
// The connection attempt runs detached from ctx and is bounded by the
// configured connect timeout. If ctx ends first, Acquire returns ctx.Err()
// and the attempt continues for the benefit of other callers.
func (m *Manager) Acquire(ctx context.Context) (*sql.DB, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	m.start.Do(func() {
		go m.connect()
	})

	select {
	case <-m.ready:
		return m.db, m.err
	default:
	}

	select {
	case <-m.ready:
		return m.db, m.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Ready reports whether the connection attempt has finished successfully.
func (m *Manager) Ready() bool {
	select {
	case <-m.ready:
		return m.err == nil
	default:
		return false
	}
}

// Dialect reports the SQL dialect for the configured URL.
func (m *Manager) Dialect() Dialect {
	return m.dialect
}

// Stats returns pool statistics, or zero values before the pool exists.
func (m *Manager) Stats() sql.DBStats {
	if !m.Ready() {
		return sql.DBStats{}
	}
	return m.db.Stats()
}

// Close shuts the pool down. It is meant for process shutdown only; the
// Manager cannot be reused afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	// Block a future first Acquire from starting an attempt.
	m.start.Do(func() {
		m.err = ErrClosed
		close(m.ready)
	})

	<-m.ready
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

func (m *Manager) connect() {
	defer close(m.ready)

	start := time.Now()
	db, err := m.dial()
	if err != nil {
		m.err = err
		m.logger.Error("database connection failed",
			"driver", m.dialect.Driver,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return
	}

	m.db = db
	m.logger.Info("database connected",
		"driver", m.dialect.Driver,
		"max_open_conns", m.cfg.MaxOpenConns,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func (m *Manager) dial() (*sql.DB, error) {
	dialect, err := DialectFor(m.cfg.URL)
	if err != nil {
		return nil, err
	}

	db, err := m.open(dialect.Driver, m.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Driver, err)
	}

	db.SetMaxOpenConns(m.cfg.MaxOpenConns)
	db.SetMaxIdleConns(m.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(m.cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(m.cfg.MaxConnIdleTime)

	timeout := m.cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.Driver, err)
	}

	return db, nil
}
