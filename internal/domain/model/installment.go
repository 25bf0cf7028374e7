package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
)

// Installment is one dated repayment obligation of a loan. Each component
// tracks what was scheduled (Due), settled in cash (Paid) and settled by
// waiver (Waived). Principal can also be closed by transfer into a rollover loan.
type Installment struct {
	Number  int
	DueDate time.Time

	PrincipalDue decimal.Decimal
	InterestDue  decimal.Decimal
	PenaltyDue   decimal.Decimal

	PrincipalPaid decimal.Decimal
	InterestPaid  decimal.Decimal
	PenaltyPaid   decimal.Decimal

	PrincipalWaived decimal.Decimal
	InterestWaived  decimal.Decimal
	PenaltyWaived   decimal.Decimal

	PrincipalTransferred decimal.Decimal

	Status           valueobject.InstallmentStatus
	PaidDate         *time.Time
	PaymentReference string

	// PenaltyAsOf is the accrual date PenaltyDue was last raised for.
	PenaltyAsOf *time.Time
}

// NewInstallment builds an unpaid installment from a computed breakdown.
func NewInstallment(number int, dueDate time.Time, principal, interest decimal.Decimal) Installment {
	return Installment{
		Number:       number,
		DueDate:      dueDate,
		PrincipalDue: principal,
		InterestDue:  interest,
		Status:       valueobject.InstallmentPending,
	}
}

func (i Installment) OutstandingPrincipal() decimal.Decimal {
	return i.PrincipalDue.Sub(i.PrincipalPaid).Sub(i.PrincipalWaived).Sub(i.PrincipalTransferred)
}

func (i Installment) OutstandingInterest() decimal.Decimal {
	return i.InterestDue.Sub(i.InterestPaid).Sub(i.InterestWaived)
}

func (i Installment) OutstandingPenalty() decimal.Decimal {
	return i.PenaltyDue.Sub(i.PenaltyPaid).Sub(i.PenaltyWaived)
}

// Outstanding returns the unsettled amount of one component.
func (i Installment) Outstanding(c valueobject.Component) decimal.Decimal {
	switch c {
	case valueobject.ComponentPenalty:
		return i.OutstandingPenalty()
	case valueobject.ComponentInterest:
		return i.OutstandingInterest()
	default:
		return i.OutstandingPrincipal()
	}
}

// TotalDue is everything ever scheduled or accrued on the installment.
func (i Installment) TotalDue() decimal.Decimal {
	return i.PrincipalDue.Add(i.InterestDue).Add(i.PenaltyDue)
}

func (i Installment) TotalOutstanding() decimal.Decimal {
	return i.OutstandingPrincipal().Add(i.OutstandingInterest()).Add(i.OutstandingPenalty())
}

// TotalPaid is cash received against the installment.
func (i Installment) TotalPaid() decimal.Decimal {
	return i.PrincipalPaid.Add(i.InterestPaid).Add(i.PenaltyPaid)
}

// TotalWaived is everything forgiven on the installment.
func (i Installment) TotalWaived() decimal.Decimal {
	return i.PrincipalWaived.Add(i.InterestWaived).Add(i.PenaltyWaived)
}

// TotalSettled is cash, waivers and transfers together.
func (i Installment) TotalSettled() decimal.Decimal {
	return i.TotalPaid().Add(i.TotalWaived()).Add(i.PrincipalTransferred)
}

// IsPaid reports whether nothing is left to settle.
func (i Installment) IsPaid() bool {
	return !i.TotalOutstanding().IsPositive()
}

// withDerivedStatus recomputes Status for today and stamps PaidDate the first
// time the installment becomes fully settled.
func (i Installment) withDerivedStatus(today time.Time) Installment {
	i.Status = valueobject.DeriveInstallmentStatus(i.TotalOutstanding(), i.TotalSettled(), i.DueDate, today)
	if i.Status.Equal(valueobject.InstallmentPaid) && i.PaidDate == nil {
		paid := today
		i.PaidDate = &paid
	}
	return i
}

// settle books amount against component c as cash (waived=false) or waiver.
func (i *Installment) settle(c valueobject.Component, amount decimal.Decimal, waived bool) {
	switch c {
	case valueobject.ComponentPenalty:
		if waived {
			i.PenaltyWaived = i.PenaltyWaived.Add(amount)
		} else {
			i.PenaltyPaid = i.PenaltyPaid.Add(amount)
		}
	case valueobject.ComponentInterest:
		if waived {
			i.InterestWaived = i.InterestWaived.Add(amount)
		} else {
			i.InterestPaid = i.InterestPaid.Add(amount)
		}
	default:
		if waived {
			i.PrincipalWaived = i.PrincipalWaived.Add(amount)
		} else {
			i.PrincipalPaid = i.PrincipalPaid.Add(amount)
		}
	}
}
