package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/event"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/lenderr"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/money"
)

// ---------------------------------------------------------------------------
// Loan aggregate root
// ---------------------------------------------------------------------------

// Loan is an immutable aggregate. Mutations return a new copy and leave the
// receiver untouched, so a failed operation never leaves partial state.
type Loan struct {
	id                  string
	applicationID       string
	customerID          string
	productID           string
	currency            money.Currency
	principal           decimal.Decimal
	interestRate        decimal.Decimal
	termPeriods         int
	originalTermPeriods int
	termUnit            valueobject.TermUnit
	strategy            valueobject.InterestStrategy
	totalPayable        decimal.Decimal
	totalPaid           decimal.Decimal
	totalWaived         decimal.Decimal
	totalOutstanding    decimal.Decimal
	status              valueobject.LoanStatus
	disbursedAt         time.Time
	maturityDate        time.Time
	restructureCount    int
	rolledOverFrom      string
	rolledOverInto      string
	version             int
	createdAt           time.Time
	updatedAt           time.Time
	installments        []Installment
	domainEvents        []event.DomainEvent
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// NewLoanParams are the commercial terms of a loan being disbursed.
type NewLoanParams struct {
	ApplicationID  string
	CustomerID     string
	ProductID      string
	Currency       money.Currency
	Principal      decimal.Decimal
	InterestRate   decimal.Decimal
	TermPeriods    int
	TermUnit       valueobject.TermUnit
	Strategy       valueobject.InterestStrategy
	DisbursedAt    time.Time
	RolledOverFrom string
}

// NewLoan creates a disbursed loan over a generated schedule. The schedule's
// principal components must sum to the principal.
func NewLoan(p NewLoanParams, installments []Installment, now time.Time) (Loan, error) {
	switch {
	case p.ApplicationID == "":
		return Loan{}, lenderr.Validation("application_id", "is required")
	case p.CustomerID == "":
		return Loan{}, lenderr.Validation("customer_id", "is required")
	case p.ProductID == "":
		return Loan{}, lenderr.Validation("product_id", "is required")
	case p.Currency.IsZero():
		return Loan{}, lenderr.Validation("currency", "is required")
	case !p.Principal.IsPositive():
		return Loan{}, lenderr.Validation("principal", "must be positive").WithAmount(p.Principal)
	case p.TermPeriods <= 0:
		return Loan{}, lenderr.Validation("term_periods", "must be positive, got %d", p.TermPeriods)
	case len(installments) == 0:
		return Loan{}, lenderr.Validation("installments", "schedule is empty")
	}

	scheduled, payable := decimal.Zero, decimal.Zero
	for _, inst := range installments {
		scheduled = scheduled.Add(inst.PrincipalDue)
		payable = payable.Add(inst.TotalDue())
	}
	if !scheduled.Equal(p.Principal) {
		return Loan{}, lenderr.Consistency("schedule principal %s does not match loan principal %s",
			scheduled.StringFixed(2), p.Principal.StringFixed(2))
	}

	id := uuid.NewString()
	loan := Loan{
		id:                  id,
		applicationID:       p.ApplicationID,
		customerID:          p.CustomerID,
		productID:           p.ProductID,
		currency:            p.Currency,
		principal:           p.Principal,
		interestRate:        p.InterestRate,
		termPeriods:         p.TermPeriods,
		originalTermPeriods: p.TermPeriods,
		termUnit:            p.TermUnit,
		strategy:            p.Strategy,
		totalPayable:        payable,
		totalOutstanding:    payable,
		status:              valueobject.LoanStatusCurrent,
		disbursedAt:         p.DisbursedAt,
		maturityDate:        installments[len(installments)-1].DueDate,
		rolledOverFrom:      p.RolledOverFrom,
		version:             1,
		createdAt:           now,
		updatedAt:           now,
		installments:        append([]Installment(nil), installments...),
	}
	loan = loan.refresh(now)

	loan.domainEvents = append(loan.domainEvents, event.NewLoanDisbursed(
		id, p.CustomerID, p.ProductID, p.ApplicationID,
		p.Principal, p.Currency.Code(), payable, p.TermPeriods,
		loan.maturityDate, p.RolledOverFrom, now,
	))
	return loan, nil
}

// LoanSnapshot is the persisted form of a Loan.
type LoanSnapshot struct {
	ID                  string
	ApplicationID       string
	CustomerID          string
	ProductID           string
	Currency            money.Currency
	Principal           decimal.Decimal
	InterestRate        decimal.Decimal
	TermPeriods         int
	OriginalTermPeriods int
	TermUnit            valueobject.TermUnit
	Strategy            valueobject.InterestStrategy
	TotalPayable        decimal.Decimal
	TotalPaid           decimal.Decimal
	TotalWaived         decimal.Decimal
	TotalOutstanding    decimal.Decimal
	Status              valueobject.LoanStatus
	DisbursedAt         time.Time
	MaturityDate        time.Time
	RestructureCount    int
	RolledOverFrom      string
	RolledOverInto      string
	Version             int
	CreatedAt           time.Time
	UpdatedAt           time.Time
	Installments        []Installment
}

// ReconstructLoan rebuilds a Loan aggregate from persistence.
func ReconstructLoan(s LoanSnapshot) Loan {
	return Loan{
		id:                  s.ID,
		applicationID:       s.ApplicationID,
		customerID:          s.CustomerID,
		productID:           s.ProductID,
		currency:            s.Currency,
		principal:           s.Principal,
		interestRate:        s.InterestRate,
		termPeriods:         s.TermPeriods,
		originalTermPeriods: s.OriginalTermPeriods,
		termUnit:            s.TermUnit,
		strategy:            s.Strategy,
		totalPayable:        s.TotalPayable,
		totalPaid:           s.TotalPaid,
		totalWaived:         s.TotalWaived,
		totalOutstanding:    s.TotalOutstanding,
		status:              s.Status,
		disbursedAt:         s.DisbursedAt,
		maturityDate:        s.MaturityDate,
		restructureCount:    s.RestructureCount,
		rolledOverFrom:      s.RolledOverFrom,
		rolledOverInto:      s.RolledOverInto,
		version:             s.Version,
		createdAt:           s.CreatedAt,
		updatedAt:           s.UpdatedAt,
		installments:        append([]Installment(nil), s.Installments...),
	}
}

// Snapshot exports the persisted form.
func (l Loan) Snapshot() LoanSnapshot {
	return LoanSnapshot{
		ID:                  l.id,
		ApplicationID:       l.applicationID,
		CustomerID:          l.customerID,
		ProductID:           l.productID,
		Currency:            l.currency,
		Principal:           l.principal,
		InterestRate:        l.interestRate,
		TermPeriods:         l.termPeriods,
		OriginalTermPeriods: l.originalTermPeriods,
		TermUnit:            l.termUnit,
		Strategy:            l.strategy,
		TotalPayable:        l.totalPayable,
		TotalPaid:           l.totalPaid,
		TotalWaived:         l.totalWaived,
		TotalOutstanding:    l.totalOutstanding,
		Status:              l.status,
		DisbursedAt:         l.disbursedAt,
		MaturityDate:        l.maturityDate,
		RestructureCount:    l.restructureCount,
		RolledOverFrom:      l.rolledOverFrom,
		RolledOverInto:      l.rolledOverInto,
		Version:             l.version,
		CreatedAt:           l.createdAt,
		UpdatedAt:           l.updatedAt,
		Installments:        l.Installments(),
	}
}

// ---------------------------------------------------------------------------
// Status housekeeping
// ---------------------------------------------------------------------------

// Refresh re-derives installment and loan statuses for today without moving
// any money.
func (l Loan) Refresh(today time.Time) Loan {
	next := l.clone()
	return next.refresh(today)
}

// refresh mutates the receiver copy; callers must have cloned it.
func (l Loan) refresh(today time.Time) Loan {
	arrears := false
	for i := range l.installments {
		l.installments[i] = l.installments[i].withDerivedStatus(today)
		if isInArrears(l.installments[i], today) {
			arrears = true
		}
	}

	if l.status.Equal(valueobject.LoanStatusDefaulted) && l.allSettled() {
		l.status = valueobject.LoanStatusPaid
		l.domainEvents = append(l.domainEvents, event.NewLoanPaidOff(l.id, l.customerID, today))
		return l
	}
	if !l.status.IsActive() {
		return l
	}
	switch {
	case l.allSettled():
		l.status = valueobject.LoanStatusPaid
		l.domainEvents = append(l.domainEvents, event.NewLoanPaidOff(l.id, l.customerID, today))
	case arrears:
		l.status = valueobject.LoanStatusArrears
	default:
		l.status = valueobject.LoanStatusCurrent
	}
	return l
}

func isInArrears(inst Installment, today time.Time) bool {
	return inst.TotalOutstanding().IsPositive() &&
		valueobject.DateOf(today).After(valueobject.DateOf(inst.DueDate))
}

func (l Loan) allSettled() bool {
	for _, inst := range l.installments {
		if !inst.IsPaid() {
			return false
		}
	}
	return true
}

// MarkDefaulted moves an active loan to DEFAULTED. Cash allocation stops;
// waivers and write-off remain possible.
func (l Loan) MarkDefaulted(daysPastDue int, now time.Time) (Loan, error) {
	if !l.status.IsActive() {
		return l, lenderr.StateConflict("cannot default a %s loan", l.status).WithLoan(l.id)
	}
	next := l.clone()
	next.status = valueobject.LoanStatusDefaulted
	next.updatedAt = now
	next.domainEvents = append(next.domainEvents, event.NewLoanDefaulted(l.id, daysPastDue, l.totalOutstanding, now))
	return next, nil
}

// ---------------------------------------------------------------------------
// Consistency
// ---------------------------------------------------------------------------

// CheckConsistency verifies the ledger invariants: no component is ever
// negative, installment numbers are unique, and the loan's running totals
// equal the sums over its installments.
func (l Loan) CheckConsistency() error {
	outstanding, paid, waived := decimal.Zero, decimal.Zero, decimal.Zero
	seen := make(map[int]struct{}, len(l.installments))

	for _, inst := range l.installments {
		if _, dup := seen[inst.Number]; dup {
			return lenderr.Consistency("duplicate installment number %d", inst.Number).WithLoan(l.id)
		}
		seen[inst.Number] = struct{}{}

		for _, c := range valueobject.Waterfall {
			if inst.Outstanding(c).IsNegative() {
				return lenderr.Consistency("installment %d %s outstanding is negative", inst.Number, c).
					WithLoan(l.id).WithAmount(inst.Outstanding(c))
			}
		}
		outstanding = outstanding.Add(inst.TotalOutstanding())
		paid = paid.Add(inst.TotalPaid())
		waived = waived.Add(inst.TotalWaived())
	}

	switch {
	case !outstanding.Equal(l.totalOutstanding):
		return lenderr.Consistency("installments owe %s but loan records %s",
			outstanding.StringFixed(2), l.totalOutstanding.StringFixed(2)).WithLoan(l.id)
	case !paid.Equal(l.totalPaid):
		return lenderr.Consistency("installments received %s but loan records %s",
			paid.StringFixed(2), l.totalPaid.StringFixed(2)).WithLoan(l.id)
	case !waived.Equal(l.totalWaived):
		return lenderr.Consistency("installments waived %s but loan records %s",
			waived.StringFixed(2), l.totalWaived.StringFixed(2)).WithLoan(l.id)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Derived figures
// ---------------------------------------------------------------------------

func (l Loan) sumOutstanding(c valueobject.Component) decimal.Decimal {
	total := decimal.Zero
	for _, inst := range l.installments {
		total = total.Add(inst.Outstanding(c))
	}
	return total
}

func (l Loan) OutstandingPrincipal() decimal.Decimal {
	return l.sumOutstanding(valueobject.ComponentPrincipal)
}

func (l Loan) OutstandingInterest() decimal.Decimal {
	return l.sumOutstanding(valueobject.ComponentInterest)
}

func (l Loan) OutstandingPenalty() decimal.Decimal {
	return l.sumOutstanding(valueobject.ComponentPenalty)
}

// OutstandingComponent sums one component over all installments.
func (l Loan) OutstandingComponent(c valueobject.Component) decimal.Decimal {
	return l.sumOutstanding(c)
}

// DaysPastDue counts days since the oldest unsettled installment fell due.
func (l Loan) DaysPastDue(asOf time.Time) int {
	for _, inst := range l.installments {
		if isInArrears(inst, asOf) {
			return valueobject.DaysBetween(inst.DueDate, asOf)
		}
	}
	return 0
}

// PeriodicRate is the per-period percent rate. A flat rate covers the whole
// original term, so it is spread across those periods.
func (l Loan) PeriodicRate() decimal.Decimal {
	if l.strategy == valueobject.FlatRate && l.originalTermPeriods > 0 {
		return l.interestRate.Div(decimal.NewFromInt(int64(l.originalTermPeriods)))
	}
	return l.interestRate
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (l Loan) ID() string                             { return l.id }
func (l Loan) ApplicationID() string                  { return l.applicationID }
func (l Loan) CustomerID() string                     { return l.customerID }
func (l Loan) ProductID() string                      { return l.productID }
func (l Loan) Currency() money.Currency               { return l.currency }
func (l Loan) Principal() decimal.Decimal             { return l.principal }
func (l Loan) InterestRate() decimal.Decimal          { return l.interestRate }
func (l Loan) TermPeriods() int                       { return l.termPeriods }
func (l Loan) OriginalTermPeriods() int               { return l.originalTermPeriods }
func (l Loan) TermUnit() valueobject.TermUnit         { return l.termUnit }
func (l Loan) Strategy() valueobject.InterestStrategy { return l.strategy }
func (l Loan) TotalPayable() decimal.Decimal          { return l.totalPayable }
func (l Loan) TotalPaid() decimal.Decimal             { return l.totalPaid }
func (l Loan) TotalWaived() decimal.Decimal           { return l.totalWaived }
func (l Loan) TotalOutstanding() decimal.Decimal      { return l.totalOutstanding }
func (l Loan) Status() valueobject.LoanStatus         { return l.status }
func (l Loan) DisbursedAt() time.Time                 { return l.disbursedAt }
func (l Loan) MaturityDate() time.Time                { return l.maturityDate }
func (l Loan) RestructureCount() int                  { return l.restructureCount }
func (l Loan) RolledOverFrom() string                 { return l.rolledOverFrom }
func (l Loan) RolledOverInto() string                 { return l.rolledOverInto }
func (l Loan) Version() int                           { return l.version }
func (l Loan) CreatedAt() time.Time                   { return l.createdAt }
func (l Loan) UpdatedAt() time.Time                   { return l.updatedAt }
func (l Loan) DomainEvents() []event.DomainEvent      { return l.domainEvents }

// Installments returns a defensive copy of the schedule.
func (l Loan) Installments() []Installment {
	if l.installments == nil {
		return nil
	}
	out := make([]Installment, len(l.installments))
	copy(out, l.installments)
	return out
}

// Installment returns the installment with the given number.
func (l Loan) Installment(number int) (Installment, bool) {
	for _, inst := range l.installments {
		if inst.Number == number {
			return inst, true
		}
	}
	return Installment{}, false
}

// ClearEvents returns a copy with an empty event list.
func (l Loan) ClearEvents() Loan {
	next := l
	next.domainEvents = nil
	return next
}

// clone copies the slices so the copy can be mutated freely.
func (l Loan) clone() Loan {
	next := l
	next.installments = l.Installments()
	next.domainEvents = append([]event.DomainEvent(nil), l.domainEvents...)
	return next
}

func (l Loan) indexOf(number int) int {
	for i, inst := range l.installments {
		if inst.Number == number {
			return i
		}
	}
	return -1
}
