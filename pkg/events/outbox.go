package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// OutboxEntry is a domain event awaiting publication. Attempts and
// LastError record failed relay passes.
type OutboxEntry struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       []byte
	Attempts      int
	LastError     string
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

// NewOutboxEntry snapshots event as JSON.
func NewOutboxEntry(event DomainEvent) (OutboxEntry, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return OutboxEntry{}, fmt.Errorf("marshal %s: %w", event.EventType(), err)
	}
	return OutboxEntry{
		ID:            event.EventID(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		EventType:     event.EventType(),
		Payload:       payload,
		CreatedAt:     event.OccurredAt(),
	}, nil
}

// Header keys carried on every published outbox message.
const (
	HeaderEventType     = "event_type"
	HeaderEventID       = "event_id"
	HeaderAggregateType = "aggregate_type"
	HeaderOccurredAt    = "occurred_at"
)

// Headers returns the transport headers consumers route and dedupe on.
func (e OutboxEntry) Headers() map[string]string {
	return map[string]string{
		HeaderEventType:     e.EventType,
		HeaderEventID:       e.ID,
		HeaderAggregateType: e.AggregateType,
		HeaderOccurredAt:    e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// OutboxRepository is the port for outbox persistence. Entries of one
// aggregate are fetched in creation order.
type OutboxRepository interface {
	Store(ctx context.Context, entries []OutboxEntry) error
	FetchUnpublished(ctx context.Context, batchSize int) ([]OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []string, at time.Time) error
	MarkFailed(ctx context.Context, id string, reason string) error
}
