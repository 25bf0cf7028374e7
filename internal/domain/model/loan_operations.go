package model

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/event"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/lenderr"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
)

// AllocationLine settles Amount of one component of one installment.
type AllocationLine struct {
	InstallmentNumber int
	Component         valueobject.Component
	Amount            decimal.Decimal
}

// SumLines totals the amounts of lines, optionally restricted to one component.
func SumLines(lines []AllocationLine, only ...valueobject.Component) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		if len(only) > 0 && line.Component != only[0] {
			continue
		}
		total = total.Add(line.Amount)
	}
	return total
}

// bookLines validates and books lines on the receiver copy. Every line must be
// positive and fit inside what the component still owes.
func (l *Loan) bookLines(lines []AllocationLine, waived bool) error {
	for _, line := range lines {
		if !line.Amount.IsPositive() {
			return lenderr.Validation("amount", "allocation to installment %d must be positive", line.InstallmentNumber).
				WithLoan(l.id).WithAmount(line.Amount)
		}
		idx := l.indexOf(line.InstallmentNumber)
		if idx < 0 {
			return lenderr.NotFound("installment", strconv.Itoa(line.InstallmentNumber)).WithLoan(l.id)
		}
		owed := l.installments[idx].Outstanding(line.Component)
		if line.Amount.GreaterThan(owed) {
			return lenderr.Validation("amount", "exceeds installment %d %s outstanding %s",
				line.InstallmentNumber, line.Component, owed.StringFixed(2)).WithLoan(l.id).WithAmount(line.Amount)
		}
		l.installments[idx].settle(line.Component, line.Amount, waived)
	}
	return nil
}

// ApplyPayment books cash allocation lines produced by the payment allocator.
func (l Loan) ApplyPayment(lines []AllocationLine, reference string, now time.Time) (Loan, error) {
	if !l.status.IsActive() {
		return l, lenderr.StateConflict("loan is %s and cannot accept payments", l.status).WithLoan(l.id)
	}
	applied := SumLines(lines)
	if !applied.IsPositive() {
		return l, lenderr.Validation("amount", "nothing to allocate").WithLoan(l.id)
	}

	next := l.clone()
	if err := next.bookLines(lines, false); err != nil {
		return l, err
	}
	for _, line := range lines {
		next.installments[next.indexOf(line.InstallmentNumber)].PaymentReference = reference
	}
	next.totalPaid = next.totalPaid.Add(applied)
	next.totalOutstanding = next.totalOutstanding.Sub(applied)
	next.updatedAt = now

	next.domainEvents = append(next.domainEvents, event.NewPaymentPosted(
		l.id, l.customerID, reference, applied,
		SumLines(lines, valueobject.ComponentPenalty),
		SumLines(lines, valueobject.ComponentInterest),
		SumLines(lines, valueobject.ComponentPrincipal),
		next.totalOutstanding, now,
	))
	return next.refresh(now), nil
}

// AccruePenalties raises installment penalties to the given totals and stamps
// each raised installment with asOf. Penalty never decreases, so a total at or
// below the current one is ignored.
func (l Loan) AccruePenalties(penalties map[int]decimal.Decimal, asOf, now time.Time) (Loan, decimal.Decimal, error) {
	if !l.status.AcceptsWaivers() {
		return l, decimal.Zero, lenderr.StateConflict("loan is %s and no longer accrues penalty", l.status).WithLoan(l.id)
	}

	next := l.clone()
	accrued := decimal.Zero
	for number, total := range penalties {
		idx := next.indexOf(number)
		if idx < 0 {
			return l, decimal.Zero, lenderr.NotFound("installment", strconv.Itoa(number)).WithLoan(l.id)
		}
		current := next.installments[idx].PenaltyDue
		if !total.GreaterThan(current) {
			continue
		}
		accrued = accrued.Add(total.Sub(current))
		stamp := valueobject.DateOf(asOf)
		next.installments[idx].PenaltyDue = total
		next.installments[idx].PenaltyAsOf = &stamp
	}
	if accrued.IsZero() {
		return l.Refresh(now), decimal.Zero, nil
	}

	next.totalPayable = next.totalPayable.Add(accrued)
	next.totalOutstanding = next.totalOutstanding.Add(accrued)
	next.updatedAt = now
	next.domainEvents = append(next.domainEvents, event.NewPenaltyAccrued(l.id, accrued, asOf, next.totalOutstanding, now))
	return next.refresh(now), accrued, nil
}

// ApplyWaiver books waiver lines. Waived money settles the installment but is
// tracked apart from cash.
func (l Loan) ApplyWaiver(typ valueobject.WaiverType, lines []AllocationLine, approvedBy, reason string, now time.Time) (Loan, error) {
	if !l.status.AcceptsWaivers() {
		return l, lenderr.StateConflict("loan is %s and cannot be waived", l.status).WithLoan(l.id)
	}
	if err := requireApproval(approvedBy, reason); err != nil {
		return l, err
	}
	amount := SumLines(lines)
	if !amount.IsPositive() {
		return l, lenderr.Validation("amount", "must be positive").WithLoan(l.id)
	}

	next := l.clone()
	if err := next.bookLines(lines, true); err != nil {
		return l, err
	}
	next.totalWaived = next.totalWaived.Add(amount)
	next.totalOutstanding = next.totalOutstanding.Sub(amount)
	next.updatedAt = now
	next.domainEvents = append(next.domainEvents, event.NewLoanWaived(
		l.id, string(typ), amount, approvedBy, next.totalOutstanding, now,
	))
	return next.refresh(now), nil
}

// WriteOff waives everything still owed and closes the loan as WRITTEN_OFF.
func (l Loan) WriteOff(approvedBy, reason string, now time.Time) (Loan, decimal.Decimal, error) {
	if !l.status.AcceptsWaivers() {
		return l, decimal.Zero, lenderr.StateConflict("loan is %s and cannot be written off", l.status).WithLoan(l.id)
	}
	if err := requireApproval(approvedBy, reason); err != nil {
		return l, decimal.Zero, err
	}

	var lines []AllocationLine
	for _, inst := range l.installments {
		for _, c := range valueobject.Waterfall {
			if owed := inst.Outstanding(c); owed.IsPositive() {
				lines = append(lines, AllocationLine{InstallmentNumber: inst.Number, Component: c, Amount: owed})
			}
		}
	}

	next := l.clone()
	if err := next.bookLines(lines, true); err != nil {
		return l, decimal.Zero, err
	}
	amount := SumLines(lines)
	next.totalWaived = next.totalWaived.Add(amount)
	next.totalOutstanding = next.totalOutstanding.Sub(amount)
	next.status = valueobject.LoanStatusWrittenOff
	next.updatedAt = now
	next.domainEvents = append(next.domainEvents, event.NewLoanWrittenOff(l.id, amount, approvedBy, reason, now))
	return next.refresh(now), amount, nil
}

// RestructurePlan is a complete replacement schedule computed by the
// restructure engine.
type RestructurePlan struct {
	Type         valueobject.RestructureType
	Installments []Installment
	InterestRate decimal.Decimal
	Strategy     valueobject.InterestStrategy
	TermPeriods  int
}

// Reschedule swaps in plan's schedule. Any installment that has received
// money must survive with its settled amounts unchanged, so repayment history
// is never rewritten.
func (l Loan) Reschedule(plan RestructurePlan, approvedBy, reason string, now time.Time) (Loan, RestructureRecord, error) {
	if !l.status.IsActive() {
		return l, RestructureRecord{}, lenderr.StateConflict("loan is %s and cannot be restructured", l.status).WithLoan(l.id)
	}
	if err := requireApproval(approvedBy, reason); err != nil {
		return l, RestructureRecord{}, err
	}
	if len(plan.Installments) == 0 || plan.TermPeriods <= 0 {
		return l, RestructureRecord{}, lenderr.Validation("term_periods", "restructure would leave no installments").WithLoan(l.id)
	}
	if err := l.checkHistoryPreserved(plan.Installments); err != nil {
		return l, RestructureRecord{}, err
	}

	before, after := decimal.Zero, decimal.Zero
	payable := decimal.Zero
	for _, inst := range l.installments {
		before = before.Add(inst.TotalOutstanding())
	}
	for _, inst := range plan.Installments {
		if inst.TotalOutstanding().IsNegative() {
			return l, RestructureRecord{}, lenderr.Consistency("installment %d would owe a negative amount", inst.Number).WithLoan(l.id)
		}
		after = after.Add(inst.TotalOutstanding())
		payable = payable.Add(inst.TotalDue())
	}

	next := l.clone()
	next.installments = append([]Installment(nil), plan.Installments...)
	next.totalOutstanding = l.totalOutstanding.Sub(before).Add(after)
	next.totalPayable = payable
	next.interestRate = plan.InterestRate
	next.strategy = plan.Strategy
	next.termPeriods = plan.TermPeriods
	next.maturityDate = plan.Installments[len(plan.Installments)-1].DueDate
	next.restructureCount++
	next.updatedAt = now

	record := RestructureRecord{
		ID:                  newID(),
		LoanID:              l.id,
		Type:                plan.Type,
		PreviousTerm:        l.termPeriods,
		NewTerm:             plan.TermPeriods,
		PreviousRate:        l.interestRate,
		NewRate:             plan.InterestRate,
		PreviousOutstanding: l.totalOutstanding,
		NewOutstanding:      next.totalOutstanding,
		ApprovedBy:          approvedBy,
		Reason:              reason,
		CreatedAt:           now,
	}
	next.domainEvents = append(next.domainEvents, event.NewLoanRestructured(
		l.id, string(plan.Type), l.termPeriods, plan.TermPeriods,
		l.interestRate, plan.InterestRate, approvedBy, next.totalOutstanding, now,
	))
	return next.refresh(now), record, nil
}

func (l Loan) checkHistoryPreserved(replacement []Installment) error {
	byNumber := make(map[int]Installment, len(replacement))
	for _, inst := range replacement {
		if _, dup := byNumber[inst.Number]; dup {
			return lenderr.Consistency("replacement schedule repeats installment %d", inst.Number).WithLoan(l.id)
		}
		byNumber[inst.Number] = inst
	}

	for _, old := range l.installments {
		if !old.TotalSettled().IsPositive() && !old.PenaltyDue.IsPositive() {
			continue
		}
		kept, ok := byNumber[old.Number]
		if !ok {
			return lenderr.Consistency("installment %d has history and cannot be dropped", old.Number).WithLoan(l.id)
		}
		if !kept.PrincipalPaid.Equal(old.PrincipalPaid) || !kept.InterestPaid.Equal(old.InterestPaid) ||
			!kept.PenaltyPaid.Equal(old.PenaltyPaid) || !kept.TotalWaived().Equal(old.TotalWaived()) ||
			!kept.PrincipalTransferred.Equal(old.PrincipalTransferred) || !kept.PenaltyDue.Equal(old.PenaltyDue) {
			return lenderr.Consistency("installment %d settled amounts would change", old.Number).WithLoan(l.id)
		}
		if old.IsPaid() && (!kept.PrincipalDue.Equal(old.PrincipalDue) || !kept.InterestDue.Equal(old.InterestDue)) {
			return lenderr.Consistency("paid installment %d would be rewritten", old.Number).WithLoan(l.id)
		}
	}
	return nil
}

// RollOver closes the loan by transferring its remaining principal into
// newLoanID. Interest and penalty must already be settled.
func (l Loan) RollOver(newLoanID string, fee decimal.Decimal, now time.Time) (Loan, decimal.Decimal, error) {
	if !l.status.IsActive() {
		return l, decimal.Zero, lenderr.StateConflict("loan is %s and cannot be rolled over", l.status).WithLoan(l.id)
	}
	if owed := l.OutstandingInterest(); owed.IsPositive() {
		return l, decimal.Zero, lenderr.StateConflict("interest must be fully paid before rollover").WithLoan(l.id).WithAmount(owed)
	}
	if owed := l.OutstandingPenalty(); owed.IsPositive() {
		return l, decimal.Zero, lenderr.StateConflict("penalty must be fully paid before rollover").WithLoan(l.id).WithAmount(owed)
	}
	carried := l.OutstandingPrincipal()
	if !carried.IsPositive() {
		return l, decimal.Zero, lenderr.StateConflict("no outstanding principal to roll over").WithLoan(l.id)
	}

	next := l.clone()
	for i := range next.installments {
		if owed := next.installments[i].OutstandingPrincipal(); owed.IsPositive() {
			next.installments[i].PrincipalTransferred = next.installments[i].PrincipalTransferred.Add(owed)
		}
	}
	next.totalOutstanding = next.totalOutstanding.Sub(carried)
	next.status = valueobject.LoanStatusRolledOver
	next.rolledOverInto = newLoanID
	next.updatedAt = now
	next.domainEvents = append(next.domainEvents, event.NewLoanRolledOver(l.id, newLoanID, carried, fee, now))
	return next.refresh(now), carried, nil
}

func requireApproval(approvedBy, reason string) error {
	if approvedBy == "" {
		return lenderr.Validation("approved_by", "is required")
	}
	if reason == "" {
		return lenderr.Validation("reason", "is required")
	}
	return nil
}
