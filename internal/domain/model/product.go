package model

import (
	"github.com/shopspring/decimal"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/money"
)

// Product is the commercial template a loan is issued under. It is reference
// data owned by the product catalog; the lending core only reads it.
type Product struct {
	ID                  string
	Name                string
	Currency            money.Currency
	MinPrincipal        decimal.Decimal
	MaxPrincipal        decimal.Decimal
	InterestRate        decimal.Decimal // percent; whole-term for FLAT_RATE, per period otherwise
	Strategy            valueobject.InterestStrategy
	TermPeriods         int
	MinTermPeriods      int
	MaxTermPeriods      int
	TermUnit            valueobject.TermUnit
	PenaltyRatePerAnnum decimal.Decimal // percent per annum on overdue balances
	ApplicationFee      decimal.Decimal
	DefaultAfterDays    int // 0 disables automatic default classification
	Active              bool
}

// TermBounds returns the inclusive term limits, falling back to 1 and the
// given ceiling where the product leaves them open.
func (p Product) TermBounds(fallbackMax int) (lo, hi int) {
	lo, hi = p.MinTermPeriods, p.MaxTermPeriods
	if lo <= 0 {
		lo = 1
	}
	if hi <= 0 {
		hi = fallbackMax
	}
	return lo, hi
}

// Customer is the borrower as seen by the customer directory.
type Customer struct {
	ID     string
	Phone  string
	Name   string
	Active bool
}

// HolderRefs are the identifiers an unmatched payment may have been keyed by.
func (c Customer) HolderRefs() []string {
	refs := []string{c.ID}
	if c.Phone != "" && c.Phone != c.ID {
		refs = append(refs, c.Phone)
	}
	return refs
}
