package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/model"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/money"
)

// penaltyDivisor turns a percent-per-annum rate into a daily fraction.
var penaltyDivisor = decimal.NewFromInt(36500) // 100 × 365

// PenaltyAccrualEngine charges late penalty on overdue installments.
type PenaltyAccrualEngine struct{}

func NewPenaltyAccrualEngine() *PenaltyAccrualEngine {
	return &PenaltyAccrualEngine{}
}

// Accrue returns inst with its penalty raised to
//
//	total outstanding × rate/(100×365) × days overdue
//
// when that exceeds the penalty already charged. Installments not yet overdue,
// fully settled, or already accrued for asOf or a later day are returned
// unchanged, and penalty is never lowered.
func (e *PenaltyAccrualEngine) Accrue(inst model.Installment, ratePerAnnum decimal.Decimal, asOf time.Time) model.Installment {
	if !ratePerAnnum.IsPositive() || !inst.TotalOutstanding().IsPositive() {
		return inst
	}
	if inst.PenaltyAsOf != nil && !valueobject.DateOf(asOf).After(*inst.PenaltyAsOf) {
		return inst
	}
	days := valueobject.DaysBetween(inst.DueDate, asOf)
	if days <= 0 {
		return inst
	}
	base := inst.TotalOutstanding()
	computed := money.Round(base.Mul(ratePerAnnum).Mul(decimal.NewFromInt(int64(days))).Div(penaltyDivisor))
	if computed.GreaterThan(inst.PenaltyDue) {
		inst.PenaltyDue = computed
	}
	return inst
}

// AccrueLoan runs Accrue over every installment of loan and books the
// increases. It returns the total newly accrued.
func (e *PenaltyAccrualEngine) AccrueLoan(loan model.Loan, ratePerAnnum decimal.Decimal, asOf, now time.Time) (model.Loan, decimal.Decimal, error) {
	raised := make(map[int]decimal.Decimal)
	for _, inst := range loan.Installments() {
		updated := e.Accrue(inst, ratePerAnnum, asOf)
		if updated.PenaltyDue.GreaterThan(inst.PenaltyDue) {
			raised[inst.Number] = updated.PenaltyDue
		}
	}
	return loan.AccruePenalties(raised, asOf, now)
}
