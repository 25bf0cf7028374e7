package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
)

// WaiverRecord is the append-only audit entry of a waiver or write-off.
type WaiverRecord struct {
	ID         string
	LoanID     string
	CustomerID string
	Type       valueobject.WaiverType
	Amount     decimal.Decimal
	ApprovedBy string
	Reason     string
	CreatedAt  time.Time
}

func NewWaiverRecord(loanID, customerID string, typ valueobject.WaiverType, amount decimal.Decimal, approvedBy, reason string, now time.Time) WaiverRecord {
	return WaiverRecord{
		ID:         newID(),
		LoanID:     loanID,
		CustomerID: customerID,
		Type:       typ,
		Amount:     amount,
		ApprovedBy: approvedBy,
		Reason:     reason,
		CreatedAt:  now,
	}
}

// RestructureRecord is the append-only audit entry of a restructure.
type RestructureRecord struct {
	ID                  string
	LoanID              string
	Type                valueobject.RestructureType
	PreviousTerm        int
	NewTerm             int
	PreviousRate        decimal.Decimal
	NewRate             decimal.Decimal
	PreviousOutstanding decimal.Decimal
	NewOutstanding      decimal.Decimal
	ApprovedBy          string
	Reason              string
	CreatedAt           time.Time
}

// RolloverRecord links a rolled-over loan to its replacement.
type RolloverRecord struct {
	ID               string
	OriginalLoanID   string
	NewLoanID        string
	CarriedPrincipal decimal.Decimal
	InterestPaid     decimal.Decimal
	ApplicationFee   decimal.Decimal
	NewPrincipal     decimal.Decimal
	NewTermPeriods   int
	ApprovedBy       string
	CreatedAt        time.Time
}

// NewRolloverRecord builds the link between original and replacement.
func NewRolloverRecord(original, replacement Loan, carried, fee decimal.Decimal, approvedBy string, now time.Time) RolloverRecord {
	interestPaid := decimal.Zero
	for _, inst := range original.installments {
		interestPaid = interestPaid.Add(inst.InterestPaid)
	}
	return RolloverRecord{
		ID:               newID(),
		OriginalLoanID:   original.id,
		NewLoanID:        replacement.id,
		CarriedPrincipal: carried,
		InterestPaid:     interestPaid,
		ApplicationFee:   fee,
		NewPrincipal:     replacement.principal,
		NewTermPeriods:   replacement.termPeriods,
		ApprovedBy:       approvedBy,
		CreatedAt:        now,
	}
}

func newID() string { return uuid.NewString() }

// PaymentReceipt marks a payment reference as posted. A reference is posted
// at most once; LoanID and SuspenseID say where the money went.
type PaymentReceipt struct {
	Reference  string
	LoanID     string
	SuspenseID string
	Amount     decimal.Decimal
	ReceivedAt time.Time
	PostedAt   time.Time
}
