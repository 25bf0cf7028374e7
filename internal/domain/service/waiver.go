package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/lenderr"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/model"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/money"
)

// WaiverEngine forgives outstanding amounts without cash.
type WaiverEngine struct{}

func NewWaiverEngine() *WaiverEngine {
	return &WaiverEngine{}
}

func (e *WaiverEngine) WaiveInterest(loan model.Loan, amount decimal.Decimal, approvedBy, reason string, now time.Time) (model.Loan, model.WaiverRecord, error) {
	return e.waive(loan, valueobject.ComponentInterest, amount, approvedBy, reason, now)
}

func (e *WaiverEngine) WaivePenalty(loan model.Loan, amount decimal.Decimal, approvedBy, reason string, now time.Time) (model.Loan, model.WaiverRecord, error) {
	return e.waive(loan, valueobject.ComponentPenalty, amount, approvedBy, reason, now)
}

func (e *WaiverEngine) WaivePrincipal(loan model.Loan, amount decimal.Decimal, approvedBy, reason string, now time.Time) (model.Loan, model.WaiverRecord, error) {
	return e.waive(loan, valueobject.ComponentPrincipal, amount, approvedBy, reason, now)
}

// Waive dispatches on the component name.
func (e *WaiverEngine) Waive(loan model.Loan, c valueobject.Component, amount decimal.Decimal, approvedBy, reason string, now time.Time) (model.Loan, model.WaiverRecord, error) {
	return e.waive(loan, c, amount, approvedBy, reason, now)
}

// waive spreads amount over the component, oldest installment first. Asking
// for more than is outstanding fails and changes nothing.
func (e *WaiverEngine) waive(loan model.Loan, c valueobject.Component, amount decimal.Decimal, approvedBy, reason string, now time.Time) (model.Loan, model.WaiverRecord, error) {
	if !amount.IsPositive() {
		return loan, model.WaiverRecord{}, lenderr.Validation("amount", "must be positive").WithLoan(loan.ID()).WithAmount(amount)
	}
	if !loan.Status().AcceptsWaivers() {
		return loan, model.WaiverRecord{}, lenderr.StateConflict("loan is %s and cannot be waived", loan.Status()).WithLoan(loan.ID())
	}
	outstanding := loan.OutstandingComponent(c)
	if amount.GreaterThan(outstanding) {
		return loan, model.WaiverRecord{}, lenderr.Validation("amount", "exceeds outstanding %s of %s",
			c, outstanding.StringFixed(2)).WithLoan(loan.ID()).WithAmount(amount)
	}

	left := amount
	var lines []model.AllocationLine
	for _, inst := range loan.Installments() {
		owed := inst.Outstanding(c)
		if !owed.IsPositive() {
			continue
		}
		take := money.Min(owed, left)
		lines = append(lines, model.AllocationLine{InstallmentNumber: inst.Number, Component: c, Amount: take})
		if left = left.Sub(take); !left.IsPositive() {
			break
		}
	}

	typ := valueobject.WaiverTypeFor(c)
	next, err := loan.ApplyWaiver(typ, lines, approvedBy, reason, now)
	if err != nil {
		return loan, model.WaiverRecord{}, err
	}
	return next, model.NewWaiverRecord(loan.ID(), loan.CustomerID(), typ, amount, approvedBy, reason, now), nil
}

// WaiveFull forgives everything still owed and writes the loan off.
func (e *WaiverEngine) WaiveFull(loan model.Loan, approvedBy, reason string, now time.Time) (model.Loan, model.WaiverRecord, error) {
	next, amount, err := loan.WriteOff(approvedBy, reason, now)
	if err != nil {
		return loan, model.WaiverRecord{}, err
	}
	return next, model.NewWaiverRecord(loan.ID(), loan.CustomerID(), valueobject.WaiverFull, amount, approvedBy, reason, now), nil
}
