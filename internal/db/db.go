package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConns = 8

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// EnsureSchema creates the terminal-local tables. The pending invoice table
// is the durable fiscal queue; payment_sessions is an append-only audit.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`create table if not exists pending_invoices (
			invoice_id text primary key,
			cart_id text not null,
			total_amount numeric(12,2) not null,
			fiscal_signature text not null,
			created_at timestamptz not null,
			submission_attempts bigint not null default 0,
			last_error text
		)`,
		`create table if not exists payment_sessions (
			session_id text primary key,
			cart_id text not null,
			total_amount numeric(12,2) not null,
			state text not null,
			allocations jsonb not null,
			fiscal_signature text,
			invoice_id text,
			cancellation jsonb,
			created_at timestamptz not null,
			closed_at timestamptz not null
		)`,
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
