package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/moviegraph-crawler/internal/graph"
)

// PostgresConfig controls the connection pool.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pgPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// PostgresSink writes the tables into Postgres, one transaction per batch.
type PostgresSink struct {
	pool pgPool
}

// NewPostgresSink connects and prepares the tables for mode.
func NewPostgresSink(ctx context.Context, cfg PostgresConfig, mode Mode) (*PostgresSink, error) {
	if cfg.DSN == "" {
		return nil, errors.New("sink.postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s, err := NewPostgresSinkWithPool(ctx, pool, mode)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresSinkWithPool builds a sink over an existing pool.
func NewPostgresSinkWithPool(ctx context.Context, pool pgPool, mode Mode) (*PostgresSink, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	s := &PostgresSink{pool: pool}
	if err := s.prepare(ctx, mode); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresSink) prepare(ctx context.Context, mode Mode) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, stmt := range postgresDialect.schemaStatements(mode) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Write inserts the batch in one transaction.
func (s *PostgresSink) Write(ctx context.Context, batch []graph.Record) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, record := range batch {
		if _, err := tx.Exec(ctx, postgresDialect.insert(record.Table()), record.Values()...); err != nil {
			return fmt.Errorf("insert %s: %w", record.Table(), err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresSink) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}
