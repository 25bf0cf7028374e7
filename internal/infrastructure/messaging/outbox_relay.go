// Package messaging moves events between the outbox, Kafka and the use cases.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/port"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/events"
	pkgkafka "github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/kafka"
)

// Publisher sends messages to a topic. *pkgkafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error
}

// OutboxRelay publishes committed outbox rows to Kafka.
type OutboxRelay struct {
	uow       port.UnitOfWork
	publisher Publisher
	topic     string
	batchSize int
	logger    *slog.Logger
	now       func() time.Time
}

// NewOutboxRelay creates a relay that drains up to batchSize rows per run.
func NewOutboxRelay(uow port.UnitOfWork, publisher Publisher, topic string, batchSize int, logger *slog.Logger) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxRelay{
		uow:       uow,
		publisher: publisher,
		topic:     topic,
		batchSize: batchSize,
		logger:    logger,
		now:       time.Now,
	}
}

// RelayOnce publishes one batch and returns how many rows were sent. Rows
// that fail stay unpublished with their attempt count raised; later rows of
// the same aggregate wait for the next run so per-loan order holds.
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	published := 0
	err := r.uow.Do(ctx, func(ctx context.Context, repos port.Repositories) error {
		published = 0
		entries, err := repos.Outbox.FetchUnpublished(ctx, r.batchSize)
		if err != nil {
			return fmt.Errorf("fetch outbox: %w", err)
		}

		blocked := make(map[string]bool)
		done := make([]string, 0, len(entries))
		for _, e := range entries {
			if blocked[e.AggregateID] {
				continue
			}
			if err := r.publisher.Publish(ctx, r.topic, toMessage(e)); err != nil {
				blocked[e.AggregateID] = true
				r.logger.WarnContext(ctx, "outbox publish failed",
					"event_id", e.ID,
					"event_type", e.EventType,
					"aggregate_id", e.AggregateID,
					"attempts", e.Attempts+1,
					"error", err,
				)
				if err := repos.Outbox.MarkFailed(ctx, e.ID, err.Error()); err != nil {
					return fmt.Errorf("mark outbox failed: %w", err)
				}
				continue
			}
			done = append(done, e.ID)
		}

		if err := repos.Outbox.MarkPublished(ctx, done, r.now().UTC()); err != nil {
			return fmt.Errorf("mark outbox published: %w", err)
		}
		published = len(done)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if published > 0 {
		r.logger.DebugContext(ctx, "outbox relayed", "count", published, "topic", r.topic)
	}
	return published, nil
}

func toMessage(e events.OutboxEntry) pkgkafka.Message {
	return pkgkafka.Message{
		Key:     []byte(e.AggregateID),
		Value:   e.Payload,
		Headers: e.Headers(),
	}
}
