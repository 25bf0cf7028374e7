package service

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/model"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/money"
)

// ---------------------------------------------------------------------------
// SuspenseReconciler – applies held payments once a loan can take them
// ---------------------------------------------------------------------------

// Reconciliation is the outcome of matching held payments against loans.
// Only changed aggregates are listed, each once, in its final state.
type Reconciliation struct {
	Loans    []model.Loan
	Payments []model.SuspensePayment
	Applied  decimal.Decimal
}

type SuspenseReconciler struct {
	allocator *PaymentAllocator
}

func NewSuspenseReconciler(allocator *PaymentAllocator) *SuspenseReconciler {
	return &SuspenseReconciler{allocator: allocator}
}

// Settle applies as much of payment as loan can absorb.
func (r *SuspenseReconciler) Settle(loan model.Loan, payment model.SuspensePayment, now time.Time) (model.Loan, model.SuspensePayment, decimal.Decimal, error) {
	if !loan.Status().IsActive() || !payment.Status().IsOutstanding() {
		return loan, payment, decimal.Zero, nil
	}
	amount := money.Min(payment.Remaining(), loan.TotalOutstanding())
	if !amount.IsPositive() {
		return loan, payment, decimal.Zero, nil
	}

	reference := payment.PaymentReference()
	if reference == "" {
		reference = "suspense:" + payment.ID()
	}
	next, alloc, err := r.allocator.Apply(loan, amount, reference, now)
	if err != nil {
		return loan, payment, decimal.Zero, err
	}
	if !alloc.Applied.IsPositive() {
		return loan, payment, decimal.Zero, nil
	}
	settled, err := payment.AttachCustomer(loan.CustomerID()).Settle(loan.ID(), alloc.Applied, now)
	if err != nil {
		return loan, payment, decimal.Zero, err
	}
	return next, settled, alloc.Applied, nil
}

// Reconcile feeds payments, oldest receipt first with ties broken by id,
// into loans in the order given until either side is exhausted. Payments
// that find nothing are marked scanned.
func (r *SuspenseReconciler) Reconcile(loans []model.Loan, payments []model.SuspensePayment, now time.Time) (Reconciliation, error) {
	ordered := append([]model.SuspensePayment(nil), payments...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.ReceivedAt().Equal(b.ReceivedAt()) {
			return a.ReceivedAt().Before(b.ReceivedAt())
		}
		return a.ID() < b.ID()
	})
	current := append([]model.Loan(nil), loans...)
	changedLoans := make(map[int]bool)

	var out Reconciliation
	out.Applied = decimal.Zero
	for _, payment := range ordered {
		before := payment.Remaining()
		for i := range current {
			if !payment.Status().IsOutstanding() {
				break
			}
			loan, settled, applied, err := r.Settle(current[i], payment, now)
			if err != nil {
				return Reconciliation{}, err
			}
			if applied.IsPositive() {
				current[i], payment = loan, settled
				changedLoans[i] = true
				out.Applied = out.Applied.Add(applied)
			}
		}
		switch {
		case payment.Remaining().LessThan(before):
			out.Payments = append(out.Payments, payment)
		case payment.Status() != payment.MarkScanned().Status():
			out.Payments = append(out.Payments, payment.MarkScanned())
		}
	}
	for i := range current {
		if changedLoans[i] {
			out.Loans = append(out.Loans, current[i])
		}
	}
	return out, nil
}
