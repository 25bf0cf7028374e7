package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/lenderr"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/model"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/money"
	pgpkg "github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/postgres"
)

// LoanRepo implements port.LoanRepository.
type LoanRepo struct {
	q         pgpkg.Querier
	forUpdate bool
}

// NewLoanRepo creates a loan repository over a pool or transaction.
func NewLoanRepo(q pgpkg.Querier) *LoanRepo {
	return &LoanRepo{q: q}
}

const loanColumns = `
	id, application_id, customer_id, product_id, currency,
	principal, interest_rate, term_periods, original_term_periods, term_unit, strategy,
	total_payable, total_paid, total_waived, total_outstanding,
	status, disbursed_at, maturity_date, restructure_count,
	rolled_over_from, rolled_over_into, version, created_at, updated_at`

// Save persists a loan and its schedule. The stored version must equal the
// loan's version; the row is then written with version + 1.
func (r *LoanRepo) Save(ctx context.Context, loan model.Loan) error {
	s := loan.Snapshot()

	const upsertSQL = `
		INSERT INTO loans (` + loanColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)
		ON CONFLICT (id) DO UPDATE SET
			interest_rate     = EXCLUDED.interest_rate,
			term_periods      = EXCLUDED.term_periods,
			strategy          = EXCLUDED.strategy,
			total_payable     = EXCLUDED.total_payable,
			total_paid        = EXCLUDED.total_paid,
			total_waived      = EXCLUDED.total_waived,
			total_outstanding = EXCLUDED.total_outstanding,
			status            = EXCLUDED.status,
			maturity_date     = EXCLUDED.maturity_date,
			restructure_count = EXCLUDED.restructure_count,
			rolled_over_into  = EXCLUDED.rolled_over_into,
			version           = loans.version + 1,
			updated_at        = EXCLUDED.updated_at
		WHERE loans.version = $22
	`
	tag, err := r.q.Exec(ctx, upsertSQL,
		s.ID, s.ApplicationID, s.CustomerID, s.ProductID, s.Currency.Code(),
		s.Principal, s.InterestRate, s.TermPeriods, s.OriginalTermPeriods, s.TermUnit.String(), s.Strategy.String(),
		s.TotalPayable, s.TotalPaid, s.TotalWaived, s.TotalOutstanding,
		s.Status.String(), s.DisbursedAt, s.MaturityDate, s.RestructureCount,
		s.RolledOverFrom, s.RolledOverInto, s.Version, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return lenderr.StateConflict("application %s already has a loan", s.ApplicationID).WithLoan(s.ID)
		}
		return fmt.Errorf("save loan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return lenderr.StateConflict("loan was modified concurrently (version %d)", s.Version).WithLoan(s.ID)
	}

	return r.saveInstallments(ctx, s.ID, s.Installments)
}

// saveInstallments upserts every row and drops numbers the schedule no
// longer has, all in one round trip.
func (r *LoanRepo) saveInstallments(ctx context.Context, loanID string, installments []model.Installment) error {
	const upsertSQL = `
		INSERT INTO installments (
			loan_id, number, due_date, principal_due, interest_due, penalty_due,
			principal_paid, interest_paid, penalty_paid,
			principal_waived, interest_waived, penalty_waived,
			principal_transferred, status, paid_date, payment_reference, penalty_as_of
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		ON CONFLICT (loan_id, number) DO UPDATE SET
			due_date              = EXCLUDED.due_date,
			principal_due         = EXCLUDED.principal_due,
			interest_due          = EXCLUDED.interest_due,
			penalty_due           = EXCLUDED.penalty_due,
			principal_paid        = EXCLUDED.principal_paid,
			interest_paid         = EXCLUDED.interest_paid,
			penalty_paid          = EXCLUDED.penalty_paid,
			principal_waived      = EXCLUDED.principal_waived,
			interest_waived       = EXCLUDED.interest_waived,
			penalty_waived        = EXCLUDED.penalty_waived,
			principal_transferred = EXCLUDED.principal_transferred,
			status                = EXCLUDED.status,
			paid_date             = EXCLUDED.paid_date,
			payment_reference     = EXCLUDED.payment_reference,
			penalty_as_of         = EXCLUDED.penalty_as_of
	`

	numbers := make([]int32, len(installments))
	batch := &pgx.Batch{}
	for i, inst := range installments {
		numbers[i] = int32(inst.Number)
		batch.Queue(upsertSQL,
			loanID, inst.Number, inst.DueDate, inst.PrincipalDue, inst.InterestDue, inst.PenaltyDue,
			inst.PrincipalPaid, inst.InterestPaid, inst.PenaltyPaid,
			inst.PrincipalWaived, inst.InterestWaived, inst.PenaltyWaived,
			inst.PrincipalTransferred, inst.Status.String(), inst.PaidDate, inst.PaymentReference, inst.PenaltyAsOf,
		)
	}
	batch.Queue(`DELETE FROM installments WHERE loan_id = $1 AND NOT (number = ANY($2))`, loanID, numbers)

	results := r.q.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("save installments of loan %s: %w", loanID, err)
		}
	}
	return results.Close()
}

// FindByID retrieves a loan and its schedule.
func (r *LoanRepo) FindByID(ctx context.Context, id string) (model.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1` + lockClause(r.forUpdate)
	return r.findOne(ctx, query, "loan", id)
}

// FindByApplicationID retrieves the loan disbursed for an application.
func (r *LoanRepo) FindByApplicationID(ctx context.Context, applicationID string) (model.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE application_id = $1` + lockClause(r.forUpdate)
	return r.findOne(ctx, query, "loan for application", applicationID)
}

// FindByCustomerID returns the customer's loans, oldest disbursement first.
func (r *LoanRepo) FindByCustomerID(ctx context.Context, customerID string, statuses ...valueobject.LoanStatus) ([]model.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans
		WHERE customer_id = $1 AND (cardinality($2::text[]) = 0 OR status = ANY($2))
		ORDER BY disbursed_at, id` + lockClause(r.forUpdate)

	rows, err := r.q.Query(ctx, query, customerID, statusStrings(statuses))
	if err != nil {
		return nil, fmt.Errorf("query loans of customer %s: %w", customerID, err)
	}
	snaps, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.LoanSnapshot, error) {
		return scanLoan(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan loans of customer %s: %w", customerID, err)
	}

	loans := make([]model.Loan, 0, len(snaps))
	for _, s := range snaps {
		if s.Installments, err = r.loadInstallments(ctx, s.ID); err != nil {
			return nil, err
		}
		loans = append(loans, model.ReconstructLoan(s))
	}
	return loans, nil
}

// ListIDsByStatus returns loan ids in the given statuses, sorted.
func (r *LoanRepo) ListIDsByStatus(ctx context.Context, statuses ...valueobject.LoanStatus) ([]string, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id FROM loans
		WHERE cardinality($1::text[]) = 0 OR status = ANY($1)
		ORDER BY id`, statusStrings(statuses))
	if err != nil {
		return nil, fmt.Errorf("list loan ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan loan ids: %w", err)
	}
	return ids, nil
}

func (r *LoanRepo) findOne(ctx context.Context, query, entity, key string) (model.Loan, error) {
	s, err := scanLoan(r.q.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Loan{}, lenderr.NotFound(entity, key)
		}
		return model.Loan{}, fmt.Errorf("find %s %s: %w", entity, key, err)
	}
	if s.Installments, err = r.loadInstallments(ctx, s.ID); err != nil {
		return model.Loan{}, err
	}
	return model.ReconstructLoan(s), nil
}

func (r *LoanRepo) loadInstallments(ctx context.Context, loanID string) ([]model.Installment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT number, due_date, principal_due, interest_due, penalty_due,
		       principal_paid, interest_paid, penalty_paid,
		       principal_waived, interest_waived, penalty_waived,
		       principal_transferred, status, paid_date, payment_reference, penalty_as_of
		FROM installments
		WHERE loan_id = $1
		ORDER BY number`, loanID)
	if err != nil {
		return nil, fmt.Errorf("query installments of loan %s: %w", loanID, err)
	}
	installments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Installment, error) {
		var (
			inst   model.Installment
			status string
		)
		err := row.Scan(
			&inst.Number, &inst.DueDate, &inst.PrincipalDue, &inst.InterestDue, &inst.PenaltyDue,
			&inst.PrincipalPaid, &inst.InterestPaid, &inst.PenaltyPaid,
			&inst.PrincipalWaived, &inst.InterestWaived, &inst.PenaltyWaived,
			&inst.PrincipalTransferred, &status, &inst.PaidDate, &inst.PaymentReference, &inst.PenaltyAsOf,
		)
		if err != nil {
			return model.Installment{}, err
		}
		inst.DueDate = inst.DueDate.UTC()
		if inst.PenaltyAsOf != nil {
			asOf := inst.PenaltyAsOf.UTC()
			inst.PenaltyAsOf = &asOf
		}
		inst.Status, err = valueobject.NewInstallmentStatus(status)
		return inst, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan installments of loan %s: %w", loanID, err)
	}
	return installments, nil
}

func scanLoan(row pgx.Row) (model.LoanSnapshot, error) {
	var (
		s                                  model.LoanSnapshot
		currency, termUnit, strategy, stat string
	)
	err := row.Scan(
		&s.ID, &s.ApplicationID, &s.CustomerID, &s.ProductID, &currency,
		&s.Principal, &s.InterestRate, &s.TermPeriods, &s.OriginalTermPeriods, &termUnit, &strategy,
		&s.TotalPayable, &s.TotalPaid, &s.TotalWaived, &s.TotalOutstanding,
		&stat, &s.DisbursedAt, &s.MaturityDate, &s.RestructureCount,
		&s.RolledOverFrom, &s.RolledOverInto, &s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return model.LoanSnapshot{}, err
	}
	s.DisbursedAt, s.MaturityDate = s.DisbursedAt.UTC(), s.MaturityDate.UTC()
	s.CreatedAt, s.UpdatedAt = s.CreatedAt.UTC(), s.UpdatedAt.UTC()

	if s.Currency, err = money.NewCurrency(currency); err != nil {
		return model.LoanSnapshot{}, err
	}
	if s.TermUnit, err = valueobject.ParseTermUnit(termUnit); err != nil {
		return model.LoanSnapshot{}, err
	}
	if s.Strategy, err = valueobject.ParseInterestStrategy(strategy); err != nil {
		return model.LoanSnapshot{}, err
	}
	if s.Status, err = valueobject.NewLoanStatus(stat); err != nil {
		return model.LoanSnapshot{}, err
	}
	return s, nil
}

func statusStrings(statuses []valueobject.LoanStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = s.String()
	}
	return out
}
