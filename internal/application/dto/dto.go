package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Request DTOs
// ---------------------------------------------------------------------------

// DisburseLoanRequest creates a loan for an approved application.
type DisburseLoanRequest struct {
	ApplicationID string          `json:"application_id" validate:"required"`
	CustomerID    string          `json:"customer_id" validate:"required"`
	ProductID     string          `json:"product_id" validate:"required"`
	Principal     decimal.Decimal `json:"principal" validate:"positive"`
	TermPeriods   int             `json:"term_periods" validate:"gte=0"`
	DisbursedAt   time.Time       `json:"disbursed_at"`
}

// BatchDisburseRequest disburses several applications; items fail independently.
type BatchDisburseRequest struct {
	Items []DisburseLoanRequest `json:"items" validate:"required,min=1"`
}

// PostPaymentRequest is an incoming repayment. LoanID targets a specific
// loan; otherwise HolderRef (customer id or phone) selects the customer's
// oldest active loan.
type PostPaymentRequest struct {
	LoanID     string          `json:"loan_id,omitempty"`
	HolderRef  string          `json:"holder_ref,omitempty" validate:"required_without=LoanID"`
	Amount     decimal.Decimal `json:"amount" validate:"positive"`
	Reference  string          `json:"reference" validate:"required,max=64"`
	ReceivedAt time.Time       `json:"received_at"`
}

type BatchPostPaymentsRequest struct {
	Items []PostPaymentRequest `json:"items" validate:"required,min=1"`
}

// AccruePenaltiesRequest accrues one loan, or every open loan when LoanID is empty.
type AccruePenaltiesRequest struct {
	LoanID string    `json:"loan_id,omitempty"`
	AsOf   time.Time `json:"as_of"`
}

// Approval identifies who authorised an administrative change and why.
type Approval struct {
	ApprovedBy string `json:"approved_by" validate:"required"`
	Reason     string `json:"reason" validate:"required,max=500"`
}

type ExtendTermRequest struct {
	LoanID         string `json:"loan_id" validate:"required"`
	NewTermPeriods int    `json:"new_term_periods" validate:"gt=0"`
	Approval
}

type ChangeRateRequest struct {
	LoanID  string          `json:"loan_id" validate:"required"`
	NewRate decimal.Decimal `json:"new_rate" validate:"nonnegative"`
	Approval
}

type ReduceMonthlyPaymentRequest struct {
	LoanID            string          `json:"loan_id" validate:"required"`
	TargetInstallment decimal.Decimal `json:"target_installment" validate:"positive"`
	Approval
}

type CompleteRestructureRequest struct {
	LoanID         string          `json:"loan_id" validate:"required"`
	NewTermPeriods int             `json:"new_term_periods" validate:"gt=0"`
	NewRate        decimal.Decimal `json:"new_rate" validate:"nonnegative"`
	Approval
}

// WaiveRequest forgives Amount of one component. Amount is ignored for a
// full waiver.
type WaiveRequest struct {
	LoanID string          `json:"loan_id" validate:"required"`
	Amount decimal.Decimal `json:"amount" validate:"nonnegative"`
	Approval
}

// RolloverRequest closes LoanID into a new loan. A nil fee uses the
// product's application fee.
type RolloverRequest struct {
	LoanID         string           `json:"loan_id" validate:"required"`
	ApplicationFee *decimal.Decimal `json:"application_fee,omitempty" validate:"omitempty,nonnegative"`
	ApprovedBy     string           `json:"approved_by" validate:"required"`
}

// ReconcileSuspenseRequest reconciles one customer, or sweeps every holder
// with money in suspense when CustomerRef is empty.
type ReconcileSuspenseRequest struct {
	CustomerRef string `json:"customer_ref,omitempty"`
}

type GetLoanRequest struct {
	LoanID string `json:"loan_id" validate:"required"`
}

// ---------------------------------------------------------------------------
// Response DTOs
// ---------------------------------------------------------------------------

// InstallmentResponse is one row of a repayment schedule.
type InstallmentResponse struct {
	Number               int             `json:"number"`
	DueDate              time.Time       `json:"due_date"`
	PrincipalDue         decimal.Decimal `json:"principal_due"`
	InterestDue          decimal.Decimal `json:"interest_due"`
	PenaltyDue           decimal.Decimal `json:"penalty_due"`
	PrincipalPaid        decimal.Decimal `json:"principal_paid"`
	InterestPaid         decimal.Decimal `json:"interest_paid"`
	PenaltyPaid          decimal.Decimal `json:"penalty_paid"`
	PrincipalWaived      decimal.Decimal `json:"principal_waived"`
	InterestWaived       decimal.Decimal `json:"interest_waived"`
	PenaltyWaived        decimal.Decimal `json:"penalty_waived"`
	PrincipalTransferred decimal.Decimal `json:"principal_transferred"`
	Outstanding          decimal.Decimal `json:"outstanding"`
	Status               string          `json:"status"`
	PaidDate             *time.Time      `json:"paid_date,omitempty"`
	PaymentReference     string          `json:"payment_reference,omitempty"`
}

// LoanResponse is the external representation of a loan account.
type LoanResponse struct {
	ID                   string                `json:"id"`
	ApplicationID        string                `json:"application_id"`
	CustomerID           string                `json:"customer_id"`
	ProductID            string                `json:"product_id"`
	Currency             string                `json:"currency"`
	Principal            decimal.Decimal       `json:"principal"`
	InterestRate         decimal.Decimal       `json:"interest_rate"`
	Strategy             string                `json:"strategy"`
	TermPeriods          int                   `json:"term_periods"`
	TermUnit             string                `json:"term_unit"`
	TotalPayable         decimal.Decimal       `json:"total_payable"`
	TotalPaid            decimal.Decimal       `json:"total_paid"`
	TotalWaived          decimal.Decimal       `json:"total_waived"`
	TotalOutstanding     decimal.Decimal       `json:"total_outstanding"`
	OutstandingPrincipal decimal.Decimal       `json:"outstanding_principal"`
	OutstandingInterest  decimal.Decimal       `json:"outstanding_interest"`
	OutstandingPenalty   decimal.Decimal       `json:"outstanding_penalty"`
	Status               string                `json:"status"`
	DisbursedAt          time.Time             `json:"disbursed_at"`
	MaturityDate         time.Time             `json:"maturity_date"`
	RestructureCount     int                   `json:"restructure_count"`
	RolledOverFrom       string                `json:"rolled_over_from,omitempty"`
	RolledOverInto       string                `json:"rolled_over_into,omitempty"`
	Version              int                   `json:"version"`
	Installments         []InstallmentResponse `json:"installments,omitempty"`
}

// PaymentResponse reports where an incoming payment went.
type PaymentResponse struct {
	Reference      string          `json:"reference"`
	LoanID         string          `json:"loan_id,omitempty"`
	Applied        decimal.Decimal `json:"applied"`
	Penalty        decimal.Decimal `json:"penalty"`
	Interest       decimal.Decimal `json:"interest"`
	Principal      decimal.Decimal `json:"principal"`
	Suspended      decimal.Decimal `json:"suspended"`
	SuspenseID     string          `json:"suspense_id,omitempty"`
	SuspenseReason string          `json:"suspense_reason,omitempty"`
	Outstanding    decimal.Decimal `json:"outstanding"`
	LoanStatus     string          `json:"loan_status,omitempty"`
}

// BatchItemResult is the outcome of one batch item.
type BatchItemResult struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

// BatchResponse aggregates per-item outcomes; one failure never aborts the rest.
type BatchResponse struct {
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Results   []BatchItemResult `json:"results"`
}

type WaiverResponse struct {
	Loan     LoanResponse    `json:"loan"`
	WaiverID string          `json:"waiver_id"`
	Type     string          `json:"type"`
	Amount   decimal.Decimal `json:"amount"`
}

type RestructureResponse struct {
	Loan     LoanResponse `json:"loan"`
	RecordID string       `json:"record_id"`
	Type     string       `json:"type"`
}

type RolloverResponse struct {
	Original    LoanResponse    `json:"original"`
	Replacement LoanResponse    `json:"replacement"`
	RecordID    string          `json:"record_id"`
	Carried     decimal.Decimal `json:"carried_principal"`
}

// PenaltyRunResponse summarises a penalty accrual pass.
type PenaltyRunResponse struct {
	Loans     int               `json:"loans"`
	Accrued   decimal.Decimal   `json:"accrued"`
	Defaulted int               `json:"defaulted"`
	Failures  []BatchItemResult `json:"failures,omitempty"`
}

// ReconcileResponse summarises a suspense reconciliation pass.
type ReconcileResponse struct {
	Holders           int             `json:"holders"`
	Applied           decimal.Decimal `json:"applied"`
	LoansUpdated      int             `json:"loans_updated"`
	PaymentsProcessed int             `json:"payments_processed"`
	Failures          []string        `json:"failures,omitempty"`
}
