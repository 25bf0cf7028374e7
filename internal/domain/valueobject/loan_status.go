package valueobject

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// LoanStatus – immutable value object
// ---------------------------------------------------------------------------

// LoanStatus represents the lifecycle stage of a disbursed loan.
type LoanStatus struct {
	value string
}

const (
	loanStatusCurrent    = "CURRENT"
	loanStatusArrears    = "ARREARS"
	loanStatusDefaulted  = "DEFAULTED"
	loanStatusPaid       = "PAID"
	loanStatusWrittenOff = "WRITTEN_OFF"
	loanStatusRolledOver = "ROLLED_OVER"
)

var (
	LoanStatusCurrent    = LoanStatus{value: loanStatusCurrent}
	LoanStatusArrears    = LoanStatus{value: loanStatusArrears}
	LoanStatusDefaulted  = LoanStatus{value: loanStatusDefaulted}
	LoanStatusPaid       = LoanStatus{value: loanStatusPaid}
	LoanStatusWrittenOff = LoanStatus{value: loanStatusWrittenOff}
	LoanStatusRolledOver = LoanStatus{value: loanStatusRolledOver}
)

var validLoanStatuses = map[string]LoanStatus{
	loanStatusCurrent:    LoanStatusCurrent,
	loanStatusArrears:    LoanStatusArrears,
	loanStatusDefaulted:  LoanStatusDefaulted,
	loanStatusPaid:       LoanStatusPaid,
	loanStatusWrittenOff: LoanStatusWrittenOff,
	loanStatusRolledOver: LoanStatusRolledOver,
}

// ActiveLoanStatuses are the statuses eligible for payments, restructures and rollover.
var ActiveLoanStatuses = []LoanStatus{LoanStatusCurrent, LoanStatusArrears}

// NewLoanStatus creates a LoanStatus from a raw string.
func NewLoanStatus(s string) (LoanStatus, error) {
	v, ok := validLoanStatuses[s]
	if !ok {
		return LoanStatus{}, fmt.Errorf("invalid loan status: %q", s)
	}
	return v, nil
}

// String returns the string representation of the status.
func (s LoanStatus) String() string { return s.value }

// IsZero returns true if the status has not been initialised.
func (s LoanStatus) IsZero() bool { return s.value == "" }

// Equal returns true when both statuses carry the same value.
func (s LoanStatus) Equal(other LoanStatus) bool { return s.value == other.value }

// IsActive reports CURRENT or ARREARS.
func (s LoanStatus) IsActive() bool {
	return s.value == loanStatusCurrent || s.value == loanStatusArrears
}

// AcceptsWaivers reports whether waivers and write-offs may still be booked.
// A defaulted loan is closed to cash allocation but not to write-off.
func (s LoanStatus) AcceptsWaivers() bool {
	return s.IsActive() || s.value == loanStatusDefaulted
}

// IsTerminal reports whether no further money movement of any kind is allowed.
func (s LoanStatus) IsTerminal() bool {
	switch s.value {
	case loanStatusPaid, loanStatusWrittenOff, loanStatusRolledOver:
		return true
	}
	return false
}
