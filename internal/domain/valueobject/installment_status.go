package valueobject

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InstallmentStatus is derived, never set by hand: see DeriveInstallmentStatus.
type InstallmentStatus struct {
	value string
}

const (
	installmentPending = "PENDING"
	installmentCurrent = "CURRENT"
	installmentOverdue = "OVERDUE"
	installmentPartial = "PARTIAL"
	installmentPaid    = "PAID"
)

var (
	InstallmentPending = InstallmentStatus{value: installmentPending}
	InstallmentCurrent = InstallmentStatus{value: installmentCurrent}
	InstallmentOverdue = InstallmentStatus{value: installmentOverdue}
	InstallmentPartial = InstallmentStatus{value: installmentPartial}
	InstallmentPaid    = InstallmentStatus{value: installmentPaid}
)

var validInstallmentStatuses = map[string]InstallmentStatus{
	installmentPending: InstallmentPending,
	installmentCurrent: InstallmentCurrent,
	installmentOverdue: InstallmentOverdue,
	installmentPartial: InstallmentPartial,
	installmentPaid:    InstallmentPaid,
}

// NewInstallmentStatus creates an InstallmentStatus from a raw string.
func NewInstallmentStatus(s string) (InstallmentStatus, error) {
	v, ok := validInstallmentStatuses[s]
	if !ok {
		return InstallmentStatus{}, fmt.Errorf("invalid installment status: %q", s)
	}
	return v, nil
}

func (s InstallmentStatus) String() string                     { return s.value }
func (s InstallmentStatus) IsZero() bool                       { return s.value == "" }
func (s InstallmentStatus) Equal(other InstallmentStatus) bool { return s.value == other.value }

// DeriveInstallmentStatus applies the status rules in priority order:
// fully settled is PAID, any settlement is PARTIAL, past due is OVERDUE,
// due today is CURRENT, otherwise PENDING. Dates compare at day precision in UTC.
func DeriveInstallmentStatus(outstanding, settled decimal.Decimal, dueDate, today time.Time) InstallmentStatus {
	switch {
	case !outstanding.IsPositive():
		return InstallmentPaid
	case settled.IsPositive():
		return InstallmentPartial
	}
	due, now := DateOf(dueDate), DateOf(today)
	switch {
	case now.After(due):
		return InstallmentOverdue
	case now.Equal(due):
		return InstallmentCurrent
	default:
		return InstallmentPending
	}
}

// DateOf truncates t to midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole days from a to b, negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}
