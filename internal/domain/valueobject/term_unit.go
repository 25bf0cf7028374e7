package valueobject

import (
	"fmt"
	"time"
)

// TermUnit is the length of one repayment period.
type TermUnit string

const (
	TermDays   TermUnit = "DAYS"
	TermWeeks  TermUnit = "WEEKS"
	TermMonths TermUnit = "MONTHS"
	TermYears  TermUnit = "YEARS"
)

// ParseTermUnit validates s.
func ParseTermUnit(s string) (TermUnit, error) {
	switch v := TermUnit(s); v {
	case TermDays, TermWeeks, TermMonths, TermYears:
		return v, nil
	}
	return "", fmt.Errorf("invalid term unit: %q", s)
}

func (u TermUnit) String() string { return string(u) }

// Advance returns from moved forward by n periods.
func (u TermUnit) Advance(from time.Time, n int) time.Time {
	switch u {
	case TermDays:
		return from.AddDate(0, 0, n)
	case TermWeeks:
		return from.AddDate(0, 0, 7*n)
	case TermYears:
		return from.AddDate(n, 0, 0)
	default:
		return from.AddDate(0, n, 0)
	}
}
