package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/ip-rate-limiter/internal/events"
)

const createLimitEventsTable = `
	CREATE TABLE IF NOT EXISTS rate_limit_events (
		id             BIGSERIAL PRIMARY KEY,
		client_key     TEXT        NOT NULL,
		count          BIGINT      NOT NULL,
		max_requests   BIGINT      NOT NULL,
		window_seconds BIGINT      NOT NULL,
		method         TEXT        NOT NULL DEFAULT '',
		path           TEXT        NOT NULL DEFAULT '',
		request_id     TEXT,
		user_agent     TEXT,
		occurred_at    TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS rate_limit_events_client_key_idx ON rate_limit_events (client_key);
`

// PostgresEventStore is a PostgreSQL implementation of events.Store.
type PostgresEventStore struct {
	pool *pgxpool.Pool
}

// NewPostgresEventStore creates a new PostgreSQL-backed event store.
func NewPostgresEventStore(pool *pgxpool.Pool) *PostgresEventStore {
	return &PostgresEventStore{pool: pool}
}

// EnsureSchema creates the rate_limit_events table if it does not exist.
func (p *PostgresEventStore) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, createLimitEventsTable)

	return err
}

func (p *PostgresEventStore) SaveLimitExceeded(ctx context.Context, event *events.LimitExceededEvent) error {
	query := `
		INSERT INTO rate_limit_events
			(client_key, count, max_requests, window_seconds, method, path, request_id, user_agent, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := p.pool.Exec(ctx, query,
		event.Key,
		event.Count,
		event.Max,
		event.WindowSeconds,
		event.Method,
		event.Path,
		nullableString(event.RequestID),
		nullableString(event.UserAgent),
		event.OccurredAt,
	)

	return err
}

// CountLimitExceeded returns how many rejections were recorded for key.
func (p *PostgresEventStore) CountLimitExceeded(ctx context.Context, key string) (int64, error) {
	var count int64

	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM rate_limit_events WHERE client_key = $1`, key,
	).Scan(&count)

	return count, err
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

// Compile-time check.
var _ events.Store = (*PostgresEventStore)(nil)
