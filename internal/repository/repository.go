// Package repository provides database access layer.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/blogpost/blogpost/migrations"
)

// Repository is the PostgreSQL post store.
type Repository struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL and verifies the connection. Pool limits
// given in the URL (pool_max_conns, pool_min_conns) win over the defaults.
func New(ctx context.Context, databaseURL string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if !strings.Contains(databaseURL, "pool_max_conns") {
		cfg.MaxConns = 10
	}
	if !strings.Contains(databaseURL, "pool_min_conns") {
		cfg.MinConns = 2
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping %s: %w: %w", cfg.ConnConfig.Host, ErrUnavailable, err)
	}

	return &Repository{pool: pool}, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close releases every pooled connection. It never fails.
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

// Pool exposes the pool for schema tooling and tests.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// Migrator returns a goose provider bound to the pool and the embedded
// PostgreSQL migrations. The caller must close the returned DB.
func (r *Repository) Migrator() (*goose.Provider, func() error, error) {
	db := stdlib.OpenDBFromPool(r.pool)

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.Postgres())
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to create migration provider: %w", err)
	}

	return provider, db.Close, nil
}

// Migrate applies all pending PostgreSQL migrations.
func (r *Repository) Migrate(ctx context.Context) error {
	provider, closeDB, err := r.Migrator()
	if err != nil {
		return err
	}
	defer closeDB()

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// wrapPgError annotates err with op and marks connection failures as ErrUnavailable.
func wrapPgError(op string, err error) error {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	// PostgreSQL error code 23505 is unique_violation
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
