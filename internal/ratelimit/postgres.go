package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLimiter implements the same sliding-window contract as
// MemoryLimiter on top of a shared PostgreSQL table, so multiple service
// processes enforce one combined ceiling per client address.
type PostgresLimiter struct {
	pool    *pgxpool.Pool
	limit   int
	timeout time.Duration
	now     func() time.Time
}

const createHitsTable = `
CREATE TABLE IF NOT EXISTS rate_limit_hits (
	client_key TEXT NOT NULL,
	hit_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rate_limit_hits_key_time
	ON rate_limit_hits (client_key, hit_at);`

// NewPostgresLimiter creates a shared-store limiter. The hits table is
// created when absent so the limiter does not depend on the user store also
// being PostgreSQL.
func NewPostgresLimiter(dsn string, requestsPerMinute int) (*PostgresLimiter, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if _, err := pool.Exec(context.Background(), createHitsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure hits table: %w", err)
	}

	return &PostgresLimiter{
		pool:    pool,
		limit:   requestsPerMinute,
		timeout: 2 * time.Second,
		now:     time.Now,
	}, nil
}

// Allow checks whether a request from the given key should be admitted.
// Storage failures admit the request: the limiter is a best-effort defense
// and must never turn into a source of 5xx responses.
func (p *PostgresLimiter) Allow(key string) (bool, Info) {
	now := p.now()
	cutoff := now.Add(-Window)
	info := Info{Limit: p.limit, Remaining: p.limit}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	allowed := true
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM rate_limit_hits WHERE client_key = $1 AND hit_at <= $2`,
			key, cutoff); err != nil {
			return err
		}

		var count int
		var oldest *time.Time
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*), MIN(hit_at) FROM rate_limit_hits WHERE client_key = $1`,
			key).Scan(&count, &oldest); err != nil {
			return err
		}

		if count >= p.limit {
			allowed = false
			info.Remaining = 0
			info.ResetAt = oldest.Add(Window)
			info.RetryAfter = Window
			return nil
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO rate_limit_hits (client_key, hit_at) VALUES ($1, $2)`,
			key, now); err != nil {
			return err
		}

		info.Remaining = p.limit - count - 1
		if oldest != nil {
			info.ResetAt = oldest.Add(Window)
		} else {
			info.ResetAt = now.Add(Window)
		}
		return nil
	})
	if err != nil {
		return true, Info{Limit: p.limit, Remaining: p.limit, ResetAt: now.Add(Window)}
	}

	return allowed, info
}

// Close releases the connection pool.
func (p *PostgresLimiter) Close() error {
	p.pool.Close()
	return nil
}
