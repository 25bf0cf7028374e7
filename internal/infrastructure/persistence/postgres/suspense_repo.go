package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/lenderr"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/model"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
	pgpkg "github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/postgres"
)

// SuspenseRepo implements port.SuspensePaymentRepository.
type SuspenseRepo struct {
	q         pgpkg.Querier
	forUpdate bool
}

const suspenseColumns = `
	id, holder_ref, customer_id, amount, remaining, status, reason,
	payment_reference, received_at, processed_at, settled_loan_ids, version`

// Save inserts or version-checks and updates a suspense payment.
func (r *SuspenseRepo) Save(ctx context.Context, p model.SuspensePayment) error {
	s := p.Snapshot()
	settled := s.SettledLoanIDs
	if settled == nil {
		settled = []string{}
	}

	tag, err := r.q.Exec(ctx, `
		INSERT INTO suspense_payments (`+suspenseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			customer_id      = EXCLUDED.customer_id,
			remaining        = EXCLUDED.remaining,
			status           = EXCLUDED.status,
			processed_at     = EXCLUDED.processed_at,
			settled_loan_ids = EXCLUDED.settled_loan_ids,
			version          = suspense_payments.version + 1
		WHERE suspense_payments.version = $12`,
		s.ID, s.HolderRef, s.CustomerID, s.Amount, s.Remaining, string(s.Status), string(s.Reason),
		s.PaymentReference, s.ReceivedAt, s.ProcessedAt, settled, s.Version,
	)
	if err != nil {
		return fmt.Errorf("save suspense payment %s: %w", s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return lenderr.StateConflict("suspense payment %s was modified concurrently", s.ID)
	}
	return nil
}

func (r *SuspenseRepo) FindByID(ctx context.Context, id string) (model.SuspensePayment, error) {
	s, err := scanSuspense(r.q.QueryRow(ctx,
		`SELECT `+suspenseColumns+` FROM suspense_payments WHERE id = $1`+lockClause(r.forUpdate), id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.SuspensePayment{}, lenderr.NotFound("suspense payment", id)
		}
		return model.SuspensePayment{}, fmt.Errorf("find suspense payment %s: %w", id, err)
	}
	return model.ReconstructSuspensePayment(s), nil
}

// FindOutstandingByHolders returns held payments keyed by any of refs or
// already resolved to customerID, oldest receipt first.
func (r *SuspenseRepo) FindOutstandingByHolders(ctx context.Context, customerID string, refs ...string) ([]model.SuspensePayment, error) {
	if refs == nil {
		refs = []string{}
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+suspenseColumns+` FROM suspense_payments
		WHERE status IN ('NEW', 'SUSPENSE')
		  AND (holder_ref = ANY($1) OR ($2 <> '' AND customer_id = $2))
		ORDER BY received_at, id`+lockClause(r.forUpdate), refs, customerID)
	if err != nil {
		return nil, fmt.Errorf("query outstanding suspense: %w", err)
	}
	snaps, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.SuspenseSnapshot, error) {
		return scanSuspense(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan outstanding suspense: %w", err)
	}
	out := make([]model.SuspensePayment, len(snaps))
	for i, s := range snaps {
		out[i] = model.ReconstructSuspensePayment(s)
	}
	return out, nil
}

// ListOutstandingHolders prefers the resolved customer id over the quoted ref.
func (r *SuspenseRepo) ListOutstandingHolders(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx, `
		SELECT DISTINCT CASE WHEN customer_id <> '' THEN customer_id ELSE holder_ref END AS holder
		FROM suspense_payments
		WHERE status IN ('NEW', 'SUSPENSE')
		ORDER BY holder`)
	if err != nil {
		return nil, fmt.Errorf("list suspense holders: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func scanSuspense(row pgx.Row) (model.SuspenseSnapshot, error) {
	var (
		s              model.SuspenseSnapshot
		status, reason string
	)
	err := row.Scan(&s.ID, &s.HolderRef, &s.CustomerID, &s.Amount, &s.Remaining, &status, &reason,
		&s.PaymentReference, &s.ReceivedAt, &s.ProcessedAt, &s.SettledLoanIDs, &s.Version)
	if err != nil {
		return model.SuspenseSnapshot{}, err
	}
	s.ReceivedAt = s.ReceivedAt.UTC()
	if s.Status, err = valueobject.ParseSuspenseStatus(status); err != nil {
		return model.SuspenseSnapshot{}, err
	}
	if s.Reason, err = valueobject.ParseExceptionReason(reason); err != nil {
		return model.SuspenseSnapshot{}, err
	}
	return s, nil
}
