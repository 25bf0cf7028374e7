package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/event"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/lenderr"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
)

// SuspensePayment is money received that could not be applied to a loan.
// It is an immutable aggregate; mutations return a new copy.
type SuspensePayment struct {
	id               string
	holderRef        string
	customerID       string
	amount           decimal.Decimal
	remaining        decimal.Decimal
	status           valueobject.SuspenseStatus
	reason           valueobject.ExceptionReason
	paymentReference string
	receivedAt       time.Time
	processedAt      *time.Time
	settledLoanIDs   []string
	version          int
	domainEvents     []event.DomainEvent
}

// NewSuspensePayment records an unmatched payment. holderRef is whatever the
// payer quoted (customer id or phone); customerID is empty when unresolved.
func NewSuspensePayment(
	holderRef, customerID string,
	amount decimal.Decimal,
	reason valueobject.ExceptionReason,
	paymentReference string,
	receivedAt, now time.Time,
) (SuspensePayment, error) {
	if holderRef == "" && customerID == "" {
		return SuspensePayment{}, lenderr.Validation("holder_ref", "is required")
	}
	if !amount.IsPositive() {
		return SuspensePayment{}, lenderr.Validation("amount", "must be positive").WithAmount(amount)
	}
	if holderRef == "" {
		holderRef = customerID
	}

	s := SuspensePayment{
		id:               uuid.NewString(),
		holderRef:        holderRef,
		customerID:       customerID,
		amount:           amount,
		remaining:        amount,
		status:           valueobject.SuspenseNew,
		reason:           reason,
		paymentReference: paymentReference,
		receivedAt:       receivedAt,
		version:          1,
	}
	s.domainEvents = append(s.domainEvents, event.NewPaymentSuspended(
		s.id, holderRef, amount, string(reason), paymentReference, now,
	))
	return s, nil
}

// SuspenseSnapshot is the persisted form of a SuspensePayment.
type SuspenseSnapshot struct {
	ID               string
	HolderRef        string
	CustomerID       string
	Amount           decimal.Decimal
	Remaining        decimal.Decimal
	Status           valueobject.SuspenseStatus
	Reason           valueobject.ExceptionReason
	PaymentReference string
	ReceivedAt       time.Time
	ProcessedAt      *time.Time
	SettledLoanIDs   []string
	Version          int
}

// ReconstructSuspensePayment rebuilds a SuspensePayment from persistence.
func ReconstructSuspensePayment(s SuspenseSnapshot) SuspensePayment {
	return SuspensePayment{
		id:               s.ID,
		holderRef:        s.HolderRef,
		customerID:       s.CustomerID,
		amount:           s.Amount,
		remaining:        s.Remaining,
		status:           s.Status,
		reason:           s.Reason,
		paymentReference: s.PaymentReference,
		receivedAt:       s.ReceivedAt,
		processedAt:      s.ProcessedAt,
		settledLoanIDs:   append([]string(nil), s.SettledLoanIDs...),
		version:          s.Version,
	}
}

// Snapshot exports the persisted form.
func (s SuspensePayment) Snapshot() SuspenseSnapshot {
	return SuspenseSnapshot{
		ID:               s.id,
		HolderRef:        s.holderRef,
		CustomerID:       s.customerID,
		Amount:           s.amount,
		Remaining:        s.remaining,
		Status:           s.status,
		Reason:           s.reason,
		PaymentReference: s.paymentReference,
		ReceivedAt:       s.receivedAt,
		ProcessedAt:      s.processedAt,
		SettledLoanIDs:   append([]string(nil), s.settledLoanIDs...),
		Version:          s.version,
	}
}

// Settle consumes amount from the held balance in favour of loanID. The
// record becomes PROCESSED once nothing remains.
func (s SuspensePayment) Settle(loanID string, amount decimal.Decimal, now time.Time) (SuspensePayment, error) {
	if !s.status.IsOutstanding() {
		return s, lenderr.StateConflict("suspense payment %s is %s", s.id, s.status)
	}
	if !amount.IsPositive() || amount.GreaterThan(s.remaining) {
		return s, lenderr.Validation("amount", "must be positive and at most %s", s.remaining.StringFixed(2)).WithAmount(amount)
	}

	next := s
	next.domainEvents = append([]event.DomainEvent(nil), s.domainEvents...)
	next.settledLoanIDs = append(append([]string(nil), s.settledLoanIDs...), loanID)
	next.remaining = s.remaining.Sub(amount)
	next.status = valueobject.SuspenseWaiting
	if next.remaining.IsZero() {
		next.status = valueobject.SuspenseProcessed
		at := now
		next.processedAt = &at
	}
	next.domainEvents = append(next.domainEvents, event.NewSuspenseSettled(s.id, loanID, amount, next.remaining, now))
	return next, nil
}

// MarkScanned moves a NEW record to SUSPENSE after a reconciliation pass
// found nothing to apply it to.
func (s SuspensePayment) MarkScanned() SuspensePayment {
	if s.status != valueobject.SuspenseNew {
		return s
	}
	next := s
	next.status = valueobject.SuspenseWaiting
	return next
}

// AttachCustomer records the resolved customer on a record that arrived
// keyed only by a phone number or other reference.
func (s SuspensePayment) AttachCustomer(customerID string) SuspensePayment {
	if s.customerID != "" || customerID == "" {
		return s
	}
	next := s
	next.customerID = customerID
	return next
}

func (s SuspensePayment) ID() string                          { return s.id }
func (s SuspensePayment) HolderRef() string                   { return s.holderRef }
func (s SuspensePayment) CustomerID() string                  { return s.customerID }
func (s SuspensePayment) Amount() decimal.Decimal             { return s.amount }
func (s SuspensePayment) Remaining() decimal.Decimal          { return s.remaining }
func (s SuspensePayment) Status() valueobject.SuspenseStatus  { return s.status }
func (s SuspensePayment) Reason() valueobject.ExceptionReason { return s.reason }
func (s SuspensePayment) PaymentReference() string            { return s.paymentReference }
func (s SuspensePayment) ReceivedAt() time.Time               { return s.receivedAt }
func (s SuspensePayment) ProcessedAt() *time.Time             { return s.processedAt }
func (s SuspensePayment) Version() int                        { return s.version }
func (s SuspensePayment) DomainEvents() []event.DomainEvent   { return s.domainEvents }
func (s SuspensePayment) SettledLoanIDs() []string            { return append([]string(nil), s.settledLoanIDs...) }

// ClearEvents returns a copy with an empty event list.
func (s SuspensePayment) ClearEvents() SuspensePayment {
	next := s
	next.domainEvents = nil
	return next
}
