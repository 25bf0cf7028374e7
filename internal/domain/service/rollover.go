package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/lenderr"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/model"
)

// RolloverResult is the closed original, its replacement and the link record.
type RolloverResult struct {
	Original    model.Loan
	Replacement model.Loan
	Record      model.RolloverRecord
}

// RolloverEngine closes a loan whose interest is settled by carrying its
// outstanding principal, plus a fee, into a new loan under the same product.
type RolloverEngine struct {
	schedules *ScheduleGenerator
}

func NewRolloverEngine(schedules *ScheduleGenerator) *RolloverEngine {
	return &RolloverEngine{schedules: schedules}
}

// Rollover creates the replacement with the original's original term. The
// replacement skips the product principal limits, since its principal is
// owed money rather than a fresh advance.
func (e *RolloverEngine) Rollover(
	original model.Loan,
	product model.Product,
	fee decimal.Decimal,
	approvedBy string,
	now time.Time,
) (RolloverResult, error) {
	if approvedBy == "" {
		return RolloverResult{}, lenderr.Validation("approved_by", "is required").WithLoan(original.ID())
	}
	if fee.IsNegative() {
		return RolloverResult{}, lenderr.Validation("application_fee", "must not be negative").WithLoan(original.ID()).WithAmount(fee)
	}
	if product.ID != original.ProductID() {
		return RolloverResult{}, lenderr.Validation("product_id", "loan was issued under %s", original.ProductID()).WithLoan(original.ID())
	}

	carried := original.OutstandingPrincipal()
	if !carried.IsPositive() {
		return RolloverResult{}, lenderr.StateConflict("no outstanding principal to roll over").WithLoan(original.ID())
	}
	principal := carried.Add(fee)
	term := original.OriginalTermPeriods()

	installments, err := e.schedules.Build(principal, product.InterestRate, term, product.Strategy, product.TermUnit, now, 1)
	if err != nil {
		return RolloverResult{}, fmt.Errorf("build replacement schedule: %w", err)
	}
	replacement, err := model.NewLoan(model.NewLoanParams{
		ApplicationID:  "rollover:" + original.ID(),
		CustomerID:     original.CustomerID(),
		ProductID:      product.ID,
		Currency:       original.Currency(),
		Principal:      principal,
		InterestRate:   product.InterestRate,
		TermPeriods:    term,
		TermUnit:       product.TermUnit,
		Strategy:       product.Strategy,
		DisbursedAt:    now,
		RolledOverFrom: original.ID(),
	}, installments, now)
	if err != nil {
		return RolloverResult{}, fmt.Errorf("create replacement loan: %w", err)
	}

	closed, moved, err := original.RollOver(replacement.ID(), fee, now)
	if err != nil {
		return RolloverResult{}, err
	}
	return RolloverResult{
		Original:    closed,
		Replacement: replacement,
		Record:      model.NewRolloverRecord(original, replacement, moved, fee, approvedBy, now),
	}, nil
}
