package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/lenderr"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/model"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
)

// ---------------------------------------------------------------------------
// ScheduleGenerator – turns product terms into dated installments
// ---------------------------------------------------------------------------

// ScheduleGenerator is the only producer of initial repayment schedules.
type ScheduleGenerator struct{}

// NewScheduleGenerator returns a new generator.
func NewScheduleGenerator() *ScheduleGenerator {
	return &ScheduleGenerator{}
}

// Disbursement describes a loan about to be created under a product.
type Disbursement struct {
	ApplicationID  string
	CustomerID     string
	Principal      decimal.Decimal
	TermPeriods    int // 0 uses the product default
	DisbursedAt    time.Time
	RolledOverFrom string
}

// Generate validates principal and term against the product and returns the
// dated schedule. The first installment falls due one period after
// disbursement.
func (g *ScheduleGenerator) Generate(
	product model.Product,
	principal decimal.Decimal,
	termPeriods int,
	disbursedAt time.Time,
) ([]model.Installment, error) {
	if !product.Active {
		return nil, lenderr.StateConflict("product %s is not active", product.ID)
	}
	if product.MinPrincipal.IsPositive() && principal.LessThan(product.MinPrincipal) {
		return nil, lenderr.Validation("principal", "below product minimum %s", product.MinPrincipal.StringFixed(2)).WithAmount(principal)
	}
	if product.MaxPrincipal.IsPositive() && principal.GreaterThan(product.MaxPrincipal) {
		return nil, lenderr.Validation("principal", "above product maximum %s", product.MaxPrincipal.StringFixed(2)).WithAmount(principal)
	}
	if termPeriods <= 0 {
		return nil, lenderr.Validation("term_periods", "must be positive, got %d", termPeriods)
	}
	if lo, hi := product.TermBounds(termPeriods); termPeriods < lo || termPeriods > hi {
		return nil, lenderr.Validation("term_periods", "%d outside product limits [%d, %d]", termPeriods, lo, hi)
	}
	return g.Build(principal, product.InterestRate, termPeriods, product.Strategy, product.TermUnit, disbursedAt, 1)
}

// Build computes and dates installments without product limit checks.
// Numbering starts at firstNumber and due dates run one unit apart from start.
func (g *ScheduleGenerator) Build(
	principal, ratePercent decimal.Decimal,
	termPeriods int,
	strategy valueobject.InterestStrategy,
	unit valueobject.TermUnit,
	start time.Time,
	firstNumber int,
) ([]model.Installment, error) {
	rows, err := model.CalculateInstallments(principal, ratePercent, termPeriods, strategy)
	if err != nil {
		return nil, err
	}
	installments := make([]model.Installment, len(rows))
	for i, row := range rows {
		installments[i] = model.NewInstallment(
			firstNumber+i,
			unit.Advance(start, row.Period),
			row.Principal,
			row.Interest,
		)
	}
	return installments, nil
}

// Disburse generates the schedule and creates the loan aggregate.
func (g *ScheduleGenerator) Disburse(product model.Product, d Disbursement, now time.Time) (model.Loan, error) {
	term := d.TermPeriods
	if term == 0 {
		term = product.TermPeriods
	}
	installments, err := g.Generate(product, d.Principal, term, d.DisbursedAt)
	if err != nil {
		return model.Loan{}, err
	}
	return model.NewLoan(model.NewLoanParams{
		ApplicationID:  d.ApplicationID,
		CustomerID:     d.CustomerID,
		ProductID:      product.ID,
		Currency:       product.Currency,
		Principal:      d.Principal,
		InterestRate:   product.InterestRate,
		TermPeriods:    term,
		TermUnit:       product.TermUnit,
		Strategy:       product.Strategy,
		DisbursedAt:    d.DisbursedAt,
		RolledOverFrom: d.RolledOverFrom,
	}, installments, now)
}
