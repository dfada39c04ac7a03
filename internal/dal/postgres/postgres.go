package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/corray333/backend-labs/shop/internal/config"
	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Conn is the query surface shared by the pool and a transaction.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Client represents a Postgres client.
type Client struct {
	pool *pgxpool.Pool
}

// Pool returns the underlying connection pool.
func (p *Client) Pool() *pgxpool.Pool {
	return p.pool
}

// Close closes the database connection for graceful shutdown.
func (p *Client) Close() {
	p.pool.Close()
}

// Ping checks that the database is reachable.
func (p *Client) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// NewClient connects to Postgres and applies pending migrations.
func NewClient(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if cfg.MigrationsPath != "" {
		if err := migrate(pool, cfg.MigrationsPath); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return &Client{pool: pool}, nil
}

// MustNewClient creates a new Postgres client.
func MustNewClient(ctx context.Context, cfg config.PostgresConfig) *Client {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		panic(err)
	}

	return client
}

func migrate(pool *pgxpool.Pool, dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// MapError translates driver errors into service error kinds, keeping the
// original error in the chain.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %w", errs.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", errs.ErrConflict, pgErr.ConstraintName)
		case codeForeignKeyViolation, codeCheckViolation:
			return fmt.Errorf("%w: %s", errs.ErrValidation, pgErr.ConstraintName)
		}
	}

	return err
}
