package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/model"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
	pgpkg "github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/postgres"
)

// WaiverRepo implements port.WaiverRecordRepository.
type WaiverRepo struct {
	q pgpkg.Querier
}

func (r *WaiverRepo) Append(ctx context.Context, rec model.WaiverRecord) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO waiver_records (id, loan_id, customer_id, waiver_type, amount, approved_by, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.LoanID, rec.CustomerID, string(rec.Type), rec.Amount, rec.ApprovedBy, rec.Reason, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append waiver record for loan %s: %w", rec.LoanID, err)
	}
	return nil
}

func (r *WaiverRepo) FindByLoanID(ctx context.Context, loanID string) ([]model.WaiverRecord, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, loan_id, customer_id, waiver_type, amount, approved_by, reason, created_at
		FROM waiver_records WHERE loan_id = $1 ORDER BY created_at, id`, loanID)
	if err != nil {
		return nil, fmt.Errorf("query waiver records: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.WaiverRecord, error) {
		var (
			rec model.WaiverRecord
			typ string
		)
		err := row.Scan(&rec.ID, &rec.LoanID, &rec.CustomerID, &typ, &rec.Amount, &rec.ApprovedBy, &rec.Reason, &rec.CreatedAt)
		rec.Type = valueobject.WaiverType(typ)
		return rec, err
	})
}

// RestructureRepo implements port.RestructureRecordRepository.
type RestructureRepo struct {
	q pgpkg.Querier
}

func (r *RestructureRepo) Append(ctx context.Context, rec model.RestructureRecord) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO restructure_records (
			id, loan_id, restructure_type, previous_term, new_term, previous_rate, new_rate,
			previous_outstanding, new_outstanding, approved_by, reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.ID, rec.LoanID, string(rec.Type), rec.PreviousTerm, rec.NewTerm, rec.PreviousRate, rec.NewRate,
		rec.PreviousOutstanding, rec.NewOutstanding, rec.ApprovedBy, rec.Reason, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append restructure record for loan %s: %w", rec.LoanID, err)
	}
	return nil
}

func (r *RestructureRepo) FindByLoanID(ctx context.Context, loanID string) ([]model.RestructureRecord, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, loan_id, restructure_type, previous_term, new_term, previous_rate, new_rate,
		       previous_outstanding, new_outstanding, approved_by, reason, created_at
		FROM restructure_records WHERE loan_id = $1 ORDER BY created_at, id`, loanID)
	if err != nil {
		return nil, fmt.Errorf("query restructure records: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.RestructureRecord, error) {
		var (
			rec model.RestructureRecord
			typ string
		)
		err := row.Scan(&rec.ID, &rec.LoanID, &typ, &rec.PreviousTerm, &rec.NewTerm, &rec.PreviousRate, &rec.NewRate,
			&rec.PreviousOutstanding, &rec.NewOutstanding, &rec.ApprovedBy, &rec.Reason, &rec.CreatedAt)
		rec.Type = valueobject.RestructureType(typ)
		return rec, err
	})
}

// RolloverRepo implements port.RolloverRecordRepository.
type RolloverRepo struct {
	q pgpkg.Querier
}

func (r *RolloverRepo) Append(ctx context.Context, rec model.RolloverRecord) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO rollover_records (
			id, original_loan_id, new_loan_id, carried_principal, interest_paid,
			application_fee, new_principal, new_term_periods, approved_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.OriginalLoanID, rec.NewLoanID, rec.CarriedPrincipal, rec.InterestPaid,
		rec.ApplicationFee, rec.NewPrincipal, rec.NewTermPeriods, rec.ApprovedBy, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append rollover record for loan %s: %w", rec.OriginalLoanID, err)
	}
	return nil
}

// FindByLoanID matches either side of the link.
func (r *RolloverRepo) FindByLoanID(ctx context.Context, loanID string) ([]model.RolloverRecord, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, original_loan_id, new_loan_id, carried_principal, interest_paid,
		       application_fee, new_principal, new_term_periods, approved_by, created_at
		FROM rollover_records
		WHERE original_loan_id = $1 OR new_loan_id = $1
		ORDER BY created_at, id`, loanID)
	if err != nil {
		return nil, fmt.Errorf("query rollover records: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.RolloverRecord, error) {
		var rec model.RolloverRecord
		err := row.Scan(&rec.ID, &rec.OriginalLoanID, &rec.NewLoanID, &rec.CarriedPrincipal, &rec.InterestPaid,
			&rec.ApplicationFee, &rec.NewPrincipal, &rec.NewTermPeriods, &rec.ApprovedBy, &rec.CreatedAt)
		return rec, err
	})
}
