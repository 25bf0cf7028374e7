package messaging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/application/dto"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/lenderr"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/infrastructure/persistence/memory"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/events"
	pkgkafka "github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/kafka"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/testutil"
)

type mockPublisher struct {
	publishFunc func(ctx context.Context, topic string, messages ...pkgkafka.Message) error
	sent        []pkgkafka.Message
}

func (m *mockPublisher) Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error {
	if m.publishFunc != nil {
		if err := m.publishFunc(ctx, topic, messages...); err != nil {
			return err
		}
	}
	m.sent = append(m.sent, messages...)
	return nil
}

type mockPoster struct {
	executeFunc func(ctx context.Context, req dto.PostPaymentRequest) (dto.PaymentResponse, error)
}

func (m *mockPoster) Execute(ctx context.Context, req dto.PostPaymentRequest) (dto.PaymentResponse, error) {
	return m.executeFunc(ctx, req)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedOutbox(t *testing.T, store *memory.Store, aggregates ...string) []events.OutboxEntry {
	t.Helper()
	var entries []events.OutboxEntry
	for i, agg := range aggregates {
		evt := events.NewBaseEvent("PaymentPosted", agg, "Loan", testutil.DisbursedAt.Add(time.Duration(i)*time.Second))
		e, err := events.NewOutboxEntry(evt)
		require.NoError(t, err)
		entries = append(entries, e)
	}
	require.NoError(t, store.Repos().Outbox.Store(context.Background(), entries))
	return entries
}

func TestOutboxRelay_RelayOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes and marks every row", func(t *testing.T) {
		store := memory.NewStore()
		entries := seedOutbox(t, store, "loan-1", "loan-2")
		pub := &mockPublisher{}
		relay := NewOutboxRelay(store, pub, "sacco.lending.events", 10, discardLogger())

		n, err := relay.RelayOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		require.Len(t, pub.sent, 2)
		assert.Equal(t, "loan-1", string(pub.sent[0].Key))
		assert.Equal(t, "PaymentPosted", pub.sent[0].Headers["event_type"])
		assert.Equal(t, entries[0].ID, pub.sent[0].Headers["event_id"])

		left, err := store.Repos().Outbox.FetchUnpublished(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, left)

		n, err = relay.RelayOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("failure holds back later events of the same loan", func(t *testing.T) {
		store := memory.NewStore()
		seedOutbox(t, store, "loan-1", "loan-1", "loan-2")
		calls := 0
		pub := &mockPublisher{publishFunc: func(_ context.Context, _ string, msgs ...pkgkafka.Message) error {
			calls++
			if calls == 1 {
				return errors.New("broker unavailable")
			}
			return nil
		}}
		relay := NewOutboxRelay(store, pub, "sacco.lending.events", 10, discardLogger())

		n, err := relay.RelayOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		require.Len(t, pub.sent, 1)
		assert.Equal(t, "loan-2", string(pub.sent[0].Key))

		left, err := store.Repos().Outbox.FetchUnpublished(ctx, 10)
		require.NoError(t, err)
		require.Len(t, left, 2)
		assert.Equal(t, 1, left[0].Attempts)
		assert.Equal(t, "broker unavailable", left[0].LastError)
		assert.Zero(t, left[1].Attempts)

		n, err = relay.RelayOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("respects batch size", func(t *testing.T) {
		store := memory.NewStore()
		seedOutbox(t, store, "a", "b", "c")
		relay := NewOutboxRelay(store, &mockPublisher{}, "t", 2, discardLogger())

		n, err := relay.RelayOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}

func TestPaymentHandler_Handle(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{"holder_ref":"254700000001","amount":"150.00","reference":"MPESA-77","received_at":"2026-02-01T08:00:00Z"}`)

	t.Run("decodes and posts", func(t *testing.T) {
		var got dto.PostPaymentRequest
		h := NewPaymentHandler(&mockPoster{executeFunc: func(_ context.Context, req dto.PostPaymentRequest) (dto.PaymentResponse, error) {
			got = req
			return dto.PaymentResponse{Reference: req.Reference, Applied: req.Amount}, nil
		}}, discardLogger())

		require.NoError(t, h.Handle(ctx, pkgkafka.Message{Value: payload}))
		assert.Equal(t, testutil.CustomerTel, got.HolderRef)
		testutil.AssertDecimal(t, "150", got.Amount)
		assert.Equal(t, "MPESA-77", got.Reference)
		assert.True(t, got.ReceivedAt.Equal(time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)))
	})

	t.Run("malformed message is acknowledged", func(t *testing.T) {
		h := NewPaymentHandler(&mockPoster{executeFunc: func(context.Context, dto.PostPaymentRequest) (dto.PaymentResponse, error) {
			t.Fatal("must not post")
			return dto.PaymentResponse{}, nil
		}}, discardLogger())
		assert.NoError(t, h.Handle(ctx, pkgkafka.Message{Value: []byte("{not json")}))
	})

	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "validation is dropped", err: lenderr.Validation("amount", "must be positive")},
		{name: "unknown loan is dropped", err: lenderr.NotFound("loan", "L-9")},
		{name: "closed loan is dropped", err: lenderr.StateConflict("loan is PAID")},
		{name: "redelivered reference is dropped", err: lenderr.StateConflict("payment reference MPESA-77 was already posted")},
		{name: "infrastructure failure is retried", err: errors.New("connection reset"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPaymentHandler(&mockPoster{executeFunc: func(context.Context, dto.PostPaymentRequest) (dto.PaymentResponse, error) {
				return dto.PaymentResponse{}, tt.err
			}}, discardLogger())
			err := h.Handle(ctx, pkgkafka.Message{Value: payload})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
