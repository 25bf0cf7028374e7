package event

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/events"
)

// DomainEvent is an alias for the shared pkg/events.DomainEvent interface.
type DomainEvent = events.DomainEvent

const (
	aggregateLoan     = "Loan"
	aggregateSuspense = "SuspensePayment"
)

// Event type names published on the lending events topic.
const (
	TypeLoanDisbursed    = "lending.loan.disbursed"
	TypePaymentPosted    = "lending.loan.payment_posted"
	TypePenaltyAccrued   = "lending.loan.penalty_accrued"
	TypeLoanPaidOff      = "lending.loan.paid_off"
	TypeLoanWaived       = "lending.loan.waived"
	TypeLoanWrittenOff   = "lending.loan.written_off"
	TypeLoanRestructured = "lending.loan.restructured"
	TypeLoanRolledOver   = "lending.loan.rolled_over"
	TypeLoanDefaulted    = "lending.loan.defaulted"
	TypePaymentSuspended = "lending.suspense.created"
	TypeSuspenseSettled  = "lending.suspense.settled"
)

// ---------------------------------------------------------------------------
// Loan Events
// ---------------------------------------------------------------------------

// LoanDisbursed is raised when a loan and its schedule are created.
type LoanDisbursed struct {
	events.BaseEvent
	CustomerID     string          `json:"customer_id"`
	ProductID      string          `json:"product_id"`
	ApplicationID  string          `json:"application_id"`
	Principal      decimal.Decimal `json:"principal"`
	Currency       string          `json:"currency"`
	TotalPayable   decimal.Decimal `json:"total_payable"`
	TermPeriods    int             `json:"term_periods"`
	MaturityDate   time.Time       `json:"maturity_date"`
	RolledOverFrom string          `json:"rolled_over_from,omitempty"`
}

func NewLoanDisbursed(
	loanID, customerID, productID, applicationID string,
	principal decimal.Decimal, currency string,
	totalPayable decimal.Decimal, termPeriods int,
	maturity time.Time, rolledOverFrom string, at time.Time,
) LoanDisbursed {
	return LoanDisbursed{
		BaseEvent:      events.NewBaseEvent(TypeLoanDisbursed, loanID, aggregateLoan, at),
		CustomerID:     customerID,
		ProductID:      productID,
		ApplicationID:  applicationID,
		Principal:      principal,
		Currency:       currency,
		TotalPayable:   totalPayable,
		TermPeriods:    termPeriods,
		MaturityDate:   maturity,
		RolledOverFrom: rolledOverFrom,
	}
}

// PaymentPosted is raised after cash is allocated to a loan.
type PaymentPosted struct {
	events.BaseEvent
	CustomerID  string          `json:"customer_id"`
	Reference   string          `json:"reference"`
	Amount      decimal.Decimal `json:"amount"`
	Penalty     decimal.Decimal `json:"penalty"`
	Interest    decimal.Decimal `json:"interest"`
	Principal   decimal.Decimal `json:"principal"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

func NewPaymentPosted(
	loanID, customerID, reference string,
	amount, penalty, interest, principal, outstanding decimal.Decimal,
	at time.Time,
) PaymentPosted {
	return PaymentPosted{
		BaseEvent:   events.NewBaseEvent(TypePaymentPosted, loanID, aggregateLoan, at),
		CustomerID:  customerID,
		Reference:   reference,
		Amount:      amount,
		Penalty:     penalty,
		Interest:    interest,
		Principal:   principal,
		Outstanding: outstanding,
	}
}

// PenaltyAccrued is raised when overdue installments accrue more penalty.
type PenaltyAccrued struct {
	events.BaseEvent
	Amount      decimal.Decimal `json:"amount"`
	AsOf        time.Time       `json:"as_of"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

func NewPenaltyAccrued(loanID string, amount decimal.Decimal, asOf time.Time, outstanding decimal.Decimal, at time.Time) PenaltyAccrued {
	return PenaltyAccrued{
		BaseEvent:   events.NewBaseEvent(TypePenaltyAccrued, loanID, aggregateLoan, at),
		Amount:      amount,
		AsOf:        asOf,
		Outstanding: outstanding,
	}
}

// LoanPaidOff is raised when every installment is settled.
type LoanPaidOff struct {
	events.BaseEvent
	CustomerID string `json:"customer_id"`
}

func NewLoanPaidOff(loanID, customerID string, at time.Time) LoanPaidOff {
	return LoanPaidOff{
		BaseEvent:  events.NewBaseEvent(TypeLoanPaidOff, loanID, aggregateLoan, at),
		CustomerID: customerID,
	}
}

// LoanWaived is raised for a component waiver.
type LoanWaived struct {
	events.BaseEvent
	WaiverType  string          `json:"waiver_type"`
	Amount      decimal.Decimal `json:"amount"`
	ApprovedBy  string          `json:"approved_by"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

func NewLoanWaived(loanID, waiverType string, amount decimal.Decimal, approvedBy string, outstanding decimal.Decimal, at time.Time) LoanWaived {
	return LoanWaived{
		BaseEvent:   events.NewBaseEvent(TypeLoanWaived, loanID, aggregateLoan, at),
		WaiverType:  waiverType,
		Amount:      amount,
		ApprovedBy:  approvedBy,
		Outstanding: outstanding,
	}
}

// LoanWrittenOff is raised by a full waiver.
type LoanWrittenOff struct {
	events.BaseEvent
	Amount     decimal.Decimal `json:"amount"`
	ApprovedBy string          `json:"approved_by"`
	Reason     string          `json:"reason"`
}

func NewLoanWrittenOff(loanID string, amount decimal.Decimal, approvedBy, reason string, at time.Time) LoanWrittenOff {
	return LoanWrittenOff{
		BaseEvent:  events.NewBaseEvent(TypeLoanWrittenOff, loanID, aggregateLoan, at),
		Amount:     amount,
		ApprovedBy: approvedBy,
		Reason:     reason,
	}
}

// LoanRestructured is raised when the unpaid schedule is regenerated.
type LoanRestructured struct {
	events.BaseEvent
	RestructureType string          `json:"restructure_type"`
	PreviousTerm    int             `json:"previous_term"`
	NewTerm         int             `json:"new_term"`
	PreviousRate    decimal.Decimal `json:"previous_rate"`
	NewRate         decimal.Decimal `json:"new_rate"`
	ApprovedBy      string          `json:"approved_by"`
	Outstanding     decimal.Decimal `json:"outstanding"`
}

func NewLoanRestructured(
	loanID, restructureType string,
	previousTerm, newTerm int,
	previousRate, newRate decimal.Decimal,
	approvedBy string, outstanding decimal.Decimal, at time.Time,
) LoanRestructured {
	return LoanRestructured{
		BaseEvent:       events.NewBaseEvent(TypeLoanRestructured, loanID, aggregateLoan, at),
		RestructureType: restructureType,
		PreviousTerm:    previousTerm,
		NewTerm:         newTerm,
		PreviousRate:    previousRate,
		NewRate:         newRate,
		ApprovedBy:      approvedBy,
		Outstanding:     outstanding,
	}
}

// LoanRolledOver is raised on the original loan when its principal moves to a new loan.
type LoanRolledOver struct {
	events.BaseEvent
	NewLoanID        string          `json:"new_loan_id"`
	CarriedPrincipal decimal.Decimal `json:"carried_principal"`
	ApplicationFee   decimal.Decimal `json:"application_fee"`
}

func NewLoanRolledOver(loanID, newLoanID string, carried, fee decimal.Decimal, at time.Time) LoanRolledOver {
	return LoanRolledOver{
		BaseEvent:        events.NewBaseEvent(TypeLoanRolledOver, loanID, aggregateLoan, at),
		NewLoanID:        newLoanID,
		CarriedPrincipal: carried,
		ApplicationFee:   fee,
	}
}

// LoanDefaulted is raised when arrears age past the product's default threshold.
type LoanDefaulted struct {
	events.BaseEvent
	DaysPastDue int             `json:"days_past_due"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

func NewLoanDefaulted(loanID string, daysPastDue int, outstanding decimal.Decimal, at time.Time) LoanDefaulted {
	return LoanDefaulted{
		BaseEvent:   events.NewBaseEvent(TypeLoanDefaulted, loanID, aggregateLoan, at),
		DaysPastDue: daysPastDue,
		Outstanding: outstanding,
	}
}

// ---------------------------------------------------------------------------
// Suspense Events
// ---------------------------------------------------------------------------

// PaymentSuspended is raised when a payment cannot be applied to a loan.
type PaymentSuspended struct {
	events.BaseEvent
	HolderRef string          `json:"holder_ref"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	Reference string          `json:"reference"`
}

func NewPaymentSuspended(suspenseID, holderRef string, amount decimal.Decimal, reason, reference string, at time.Time) PaymentSuspended {
	return PaymentSuspended{
		BaseEvent: events.NewBaseEvent(TypePaymentSuspended, suspenseID, aggregateSuspense, at),
		HolderRef: holderRef,
		Amount:    amount,
		Reason:    reason,
		Reference: reference,
	}
}

// SuspenseSettled is raised each time held money is applied to a loan.
type SuspenseSettled struct {
	events.BaseEvent
	LoanID    string          `json:"loan_id"`
	Amount    decimal.Decimal `json:"amount"`
	Remaining decimal.Decimal `json:"remaining"`
}

func NewSuspenseSettled(suspenseID, loanID string, amount, remaining decimal.Decimal, at time.Time) SuspenseSettled {
	return SuspenseSettled{
		BaseEvent: events.NewBaseEvent(TypeSuspenseSettled, suspenseID, aggregateSuspense, at),
		LoanID:    loanID,
		Amount:    amount,
		Remaining: remaining,
	}
}
