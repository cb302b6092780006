// Package postgres provides the connection-pool lifecycle shared by
// Postgres-backed bindings (currently internal/configstore/postgres).
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Connection is the subset of pool behavior callers depend on, so tests
// can substitute a fake without dragging in pgxpool.
type Connection interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool

	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row

	Begin(ctx context.Context) (pgx.Tx, error)
}

// Stats is a snapshot of pool utilization, read by telemetry/metrics.
type Stats struct {
	TotalConns   int32
	IdleConns    int32
	AcquireCount int64
}

// Pool wraps a pgxpool.Pool with the connect/disconnect lifecycle and
// structured logging the rest of the codebase expects from a
// long-lived infrastructure dependency.
type Pool struct {
	pool     *pgxpool.Pool
	config   *Config
	logger   *slog.Logger
	isClosed atomic.Bool
}

// NewPool constructs a Pool that has not yet connected.
func NewPool(config *Config, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{config: config, logger: logger}
}

// Connect establishes the underlying pgxpool and verifies it with a ping.
func (p *Pool) Connect(ctx context.Context) error {
	if p.isClosed.Load() {
		return ErrConnectionClosed
	}
	if err := p.config.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	p.logger.Info("connecting to postgres",
		"host", p.config.Host, "port", p.config.Port, "database", p.config.Database)

	poolConfig, err := pgxpool.ParseConfig(p.config.DSN())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	poolConfig.MaxConns = p.config.MaxConns
	poolConfig.MinConns = p.config.MinConns
	poolConfig.MaxConnLifetime = p.config.MaxConnLifetime
	poolConfig.MaxConnIdleTime = p.config.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = p.config.HealthCheckPeriod

	connectCtx, cancel := context.WithTimeout(ctx, p.config.ConnectTimeout)
	defer cancel()

	start := time.Now()
	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	p.pool = pool
	p.logger.Info("connected to postgres", "connection_time", time.Since(start))
	return nil
}

// Disconnect closes the pool. Safe to call on an already-closed Pool.
func (p *Pool) Disconnect(ctx context.Context) error {
	if p.pool == nil {
		return nil
	}
	if p.isClosed.Load() {
		return ErrConnectionClosed
	}
	p.pool.Close()
	p.isClosed.Store(true)
	p.logger.Info("disconnected from postgres")
	return nil
}

// IsConnected reports whether the pool holds at least one live connection.
func (p *Pool) IsConnected() bool {
	if p.isClosed.Load() || p.pool == nil {
		return false
	}
	return p.pool.Stat().TotalConns() > 0
}

// Stats reports current pool utilization for metrics.
func (p *Pool) Stats() Stats {
	if p.pool == nil {
		return Stats{}
	}
	s := p.pool.Stat()
	return Stats{
		TotalConns:   s.TotalConns(),
		IdleConns:    s.IdleConns(),
		AcquireCount: s.AcquireCount(),
	}
}

func (p *Pool) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	if p.pool == nil {
		return pgconn.CommandTag{}, ErrNotConnected
	}
	return p.pool.Exec(ctx, sql, args...)
}

func (p *Pool) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	if p.pool == nil {
		return nil, ErrNotConnected
	}
	return p.pool.Query(ctx, sql, args...)
}

func (p *Pool) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	if p.pool == nil {
		return &errorRow{err: ErrNotConnected}
	}
	return p.pool.QueryRow(ctx, sql, args...)
}

func (p *Pool) Begin(ctx context.Context) (pgx.Tx, error) {
	if p.pool == nil {
		return nil, ErrNotConnected
	}
	return p.pool.Begin(ctx)
}

// Close is an alias for Disconnect, satisfying io.Closer.
func (p *Pool) Close() error { return p.Disconnect(context.Background()) }

// Raw exposes the underlying pgxpool.Pool (nil before Connect). Goose
// migrations do not use it; they open their own *sql.DB from the DSN.
func (p *Pool) Raw() *pgxpool.Pool { return p.pool }

type errorRow struct{ err error }

func (r *errorRow) Scan(dest ...interface{}) error { return r.err }
