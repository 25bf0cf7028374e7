package service

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/lenderr"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/model"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/money"
)

// ---------------------------------------------------------------------------
// PaymentAllocator – waterfall allocation of cash
// ---------------------------------------------------------------------------

// Allocation is how an amount splits across a loan's installments.
type Allocation struct {
	Lines     []model.AllocationLine
	Applied   decimal.Decimal
	Remainder decimal.Decimal
}

// PaymentAllocator applies cash oldest installment first, settling penalty,
// then interest, then principal on each before moving to the next.
type PaymentAllocator struct{}

func NewPaymentAllocator() *PaymentAllocator {
	return &PaymentAllocator{}
}

// Plan computes the allocation of amount without changing the loan.
func (a *PaymentAllocator) Plan(loan model.Loan, amount decimal.Decimal) (Allocation, error) {
	if !amount.IsPositive() {
		return Allocation{}, lenderr.Validation("amount", "must be positive").WithLoan(loan.ID()).WithAmount(amount)
	}
	if money.Round(amount).Cmp(amount) != 0 {
		return Allocation{}, lenderr.Validation("amount", "has more than %d decimal places", money.Places).WithLoan(loan.ID()).WithAmount(amount)
	}
	if !loan.Status().IsActive() {
		return Allocation{}, lenderr.StateConflict("loan is %s and cannot accept payments", loan.Status()).WithLoan(loan.ID())
	}

	installments := loan.Installments()
	sort.SliceStable(installments, func(i, j int) bool { return installments[i].Number < installments[j].Number })

	left := amount
	var lines []model.AllocationLine
	for _, inst := range installments {
		if !left.IsPositive() {
			break
		}
		for _, c := range valueobject.Waterfall {
			owed := inst.Outstanding(c)
			if !owed.IsPositive() || !left.IsPositive() {
				continue
			}
			take := money.Min(owed, left)
			lines = append(lines, model.AllocationLine{InstallmentNumber: inst.Number, Component: c, Amount: take})
			left = left.Sub(take)
		}
	}
	return Allocation{Lines: lines, Applied: amount.Sub(left), Remainder: left}, nil
}

// Apply allocates amount and books it on the loan. The remainder is whatever
// the loan could not absorb; the caller must keep it in suspense.
func (a *PaymentAllocator) Apply(loan model.Loan, amount decimal.Decimal, reference string, now time.Time) (model.Loan, Allocation, error) {
	alloc, err := a.Plan(loan, amount)
	if err != nil {
		return loan, Allocation{}, err
	}
	if len(alloc.Lines) == 0 {
		return loan, alloc, nil
	}
	next, err := loan.ApplyPayment(alloc.Lines, reference, now)
	if err != nil {
		return loan, Allocation{}, err
	}
	return next, alloc, nil
}
