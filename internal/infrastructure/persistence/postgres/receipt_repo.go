package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/lenderr"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/model"
	pgpkg "github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/postgres"
)

// ReceiptRepo implements port.PaymentReceiptRepository.
type ReceiptRepo struct {
	q pgpkg.Querier
}

// Record inserts the receipt. A concurrent insert of the same reference waits
// for the other transaction and then reports the duplicate.
func (r *ReceiptRepo) Record(ctx context.Context, rec model.PaymentReceipt) error {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO payment_receipts (reference, loan_id, suspense_id, amount, received_at, posted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (reference) DO NOTHING`,
		rec.Reference, rec.LoanID, rec.SuspenseID, rec.Amount, rec.ReceivedAt, rec.PostedAt,
	)
	if err != nil {
		return fmt.Errorf("record payment %s: %w", rec.Reference, err)
	}
	if tag.RowsAffected() == 0 {
		return lenderr.StateConflict("payment reference %s was already posted", rec.Reference)
	}
	return nil
}

func (r *ReceiptRepo) FindByReference(ctx context.Context, reference string) (model.PaymentReceipt, error) {
	var rec model.PaymentReceipt
	err := r.q.QueryRow(ctx, `
		SELECT reference, loan_id, suspense_id, amount, received_at, posted_at
		FROM payment_receipts WHERE reference = $1`, reference,
	).Scan(&rec.Reference, &rec.LoanID, &rec.SuspenseID, &rec.Amount, &rec.ReceivedAt, &rec.PostedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PaymentReceipt{}, lenderr.NotFound("payment receipt", reference)
		}
		return model.PaymentReceipt{}, fmt.Errorf("find payment %s: %w", reference, err)
	}
	rec.ReceivedAt, rec.PostedAt = rec.ReceivedAt.UTC(), rec.PostedAt.UTC()
	return rec, nil
}
