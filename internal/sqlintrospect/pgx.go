package sqlintrospect

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxQuerier talks to Postgres directly over a small pool.
type PgxQuerier struct {
	pool *pgxpool.Pool
}

// OpenPgx connects to dsn and pings it. simple switches to the simple query
// protocol, which transaction-mode poolers require.
func OpenPgx(ctx context.Context, dsn string, simple bool) (*PgxQuerier, error) {
	if dsn == "" {
		return nil, errors.New("sqlintrospect: pgx driver needs a dsn")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlintrospect: parse dsn: %w", err)
	}
	cfg.MaxConns = 2
	if simple {
		cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, describe("connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, describe("ping", err)
	}
	return &PgxQuerier{pool: pool}, nil
}

func (q *PgxQuerier) Dialect() string { return DialectPostgres }

func (q *PgxQuerier) QueryRow(ctx context.Context, query string, args ...any) (Row, error) {
	return pgxRow{row: q.pool.QueryRow(ctx, query, args...)}, nil
}

func (q *PgxQuerier) Close() error {
	q.pool.Close()
	return nil
}

type pgxRow struct{ row pgx.Row }

func (r pgxRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoRows
	}
	if err != nil {
		return describe("query", err)
	}
	return nil
}

// describe surfaces the SQLSTATE of server errors.
func describe(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("sqlintrospect: %s: %s (SQLSTATE %s): %w", op, pgErr.Message, pgErr.Code, err)
	}
	return fmt.Errorf("sqlintrospect: %s: %w", op, err)
}
