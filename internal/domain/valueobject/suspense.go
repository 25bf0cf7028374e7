package valueobject

import "fmt"

// SuspenseStatus tracks an unmatched payment from receipt to settlement.
// NEW has never been scanned by the reconciler, SUSPENSE was scanned and is
// still waiting for an eligible loan, PROCESSED is fully applied.
type SuspenseStatus string

const (
	SuspenseNew       SuspenseStatus = "NEW"
	SuspenseWaiting   SuspenseStatus = "SUSPENSE"
	SuspenseProcessed SuspenseStatus = "PROCESSED"
)

// ParseSuspenseStatus validates s.
func ParseSuspenseStatus(s string) (SuspenseStatus, error) {
	switch v := SuspenseStatus(s); v {
	case SuspenseNew, SuspenseWaiting, SuspenseProcessed:
		return v, nil
	}
	return "", fmt.Errorf("invalid suspense status: %q", s)
}

// IsOutstanding reports whether money is still held.
func (s SuspenseStatus) IsOutstanding() bool {
	return s == SuspenseNew || s == SuspenseWaiting
}

// ExceptionReason explains why a payment went to suspense.
type ExceptionReason string

const (
	ReasonOverpayment     ExceptionReason = "OVERPAYMENT"
	ReasonMissingCustomer ExceptionReason = "MISSING_CUSTOMER"
	ReasonNoActiveLoan    ExceptionReason = "NO_ACTIVE_LOAN"
)

// ParseExceptionReason validates s.
func ParseExceptionReason(s string) (ExceptionReason, error) {
	switch v := ExceptionReason(s); v {
	case ReasonOverpayment, ReasonMissingCustomer, ReasonNoActiveLoan:
		return v, nil
	}
	return "", fmt.Errorf("invalid exception reason: %q", s)
}
