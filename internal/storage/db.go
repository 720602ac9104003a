// Package storage wraps the Postgres pool used by the durable Trace Logger
// record store (the Primitive Library's own Postgres backend lives in
// internal/primitive/postgres.go and takes a *pgxpool.Pool constructed here).
// A thin pgxpool.Pool wrapper with a
// WithTx helper, hand-written queries rather than sqlc codegen (SPEC_FULL.md
// §5: "code generation cannot be run in this exercise").
package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config configures the connection pool.
type Config struct {
	DSN string

	// MaxConns/MinConns mirror PgBouncer-aware defaults; left at
	// zero to fall back to those defaults.
	MaxConns int32
	MinConns int32
}

// DB wraps a pgxpool.Pool and provides transaction support for the stores
// built on top of it.
type DB struct {
	pool *pgxpool.Pool
}

// New opens and pings a connection pool for cfg.DSN.
func New(ctx context.Context, cfg Config) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("storage: parsing database config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	if poolCfg.MaxConns <= 0 {
		poolCfg.MaxConns = 10
	}
	poolCfg.MinConns = cfg.MinConns
	if poolCfg.MinConns <= 0 {
		poolCfg.MinConns = 2
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("storage: creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: pinging database: %w", err)
	}
	return &DB{pool: pool}, nil
}

func (db *DB) Close() {
	db.pool.Close()
}

// Pool exposes the underlying pool for backends (e.g.
// primitive.NewPostgresStore) that take it directly rather than going
// through DB's own query helpers.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// WithTx runs fn inside a transaction, rolling back on any error (including
// a panic-free early return) and committing otherwise.
func (db *DB) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage: beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("storage: committing transaction: %w", err)
	}
	return nil
}
