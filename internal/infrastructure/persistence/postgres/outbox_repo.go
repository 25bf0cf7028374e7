package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/events"
	pgpkg "github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/postgres"
)

// OutboxRepo implements events.OutboxRepository. Inside a transaction the
// fetched rows stay locked so concurrent relays skip them.
type OutboxRepo struct {
	q          pgpkg.Querier
	skipLocked bool
}

var _ events.OutboxRepository = (*OutboxRepo)(nil)

func (r *OutboxRepo) Store(ctx context.Context, entries []events.OutboxEntry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`
			INSERT INTO outbox (id, aggregate_id, aggregate_type, event_type, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			e.ID, e.AggregateID, e.AggregateType, e.EventType, e.Payload, e.CreatedAt,
		)
	}
	results := r.q.SendBatch(ctx, batch)
	for range entries {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("insert outbox entry: %w", err)
		}
	}
	return results.Close()
}

func (r *OutboxRepo) FetchUnpublished(ctx context.Context, batchSize int) ([]events.OutboxEntry, error) {
	query := `
		SELECT id, aggregate_id, aggregate_type, event_type, payload, attempts, last_error, created_at, published_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at, id
		LIMIT $1`
	if r.skipLocked {
		query += ` FOR UPDATE SKIP LOCKED`
	}
	rows, err := r.q.Query(ctx, query, batchSize)
	if err != nil {
		return nil, fmt.Errorf("fetch unpublished outbox: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (events.OutboxEntry, error) {
		var e events.OutboxEntry
		err := row.Scan(&e.ID, &e.AggregateID, &e.AggregateType, &e.EventType, &e.Payload,
			&e.Attempts, &e.LastError, &e.CreatedAt, &e.PublishedAt)
		return e, err
	})
}

func (r *OutboxRepo) MarkPublished(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.q.Exec(ctx, `UPDATE outbox SET published_at = $2 WHERE id = ANY($1)`, ids, at); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

func (r *OutboxRepo) MarkFailed(ctx context.Context, id string, reason string) error {
	if _, err := r.q.Exec(ctx,
		`UPDATE outbox SET attempts = attempts + 1, last_error = $2 WHERE id = $1`, id, reason); err != nil {
		return fmt.Errorf("mark outbox %s failed: %w", id, err)
	}
	return nil
}
