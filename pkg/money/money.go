// Package money holds the currency and rounding rules shared by every
// monetary calculation in the lending core. All amounts are shopspring
// decimals rounded half-up to two places.
package money

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits kept on every stored amount.
const Places = 2

var currencyCodeRe = regexp.MustCompile(`^[A-Z]{3}$`)

// Currency is an ISO 4217 currency code.
type Currency struct {
	code string
}

// NewCurrency creates a Currency after validating the code is exactly 3 uppercase letters.
func NewCurrency(code string) (Currency, error) {
	if !currencyCodeRe.MatchString(code) {
		return Currency{}, fmt.Errorf("invalid currency code %q: must be exactly 3 uppercase letters", code)
	}
	return Currency{code: code}, nil
}

// MustCurrency creates a Currency and panics on error. Intended for package-level variable
// initialization only.
func MustCurrency(code string) Currency {
	c, err := NewCurrency(code)
	if err != nil {
		panic(err)
	}
	return c
}

// Code returns the ISO 4217 currency code.
func (c Currency) Code() string { return c.code }

// String returns the currency code.
func (c Currency) String() string { return c.code }

// IsZero reports whether the currency was never set.
func (c Currency) IsZero() bool { return c.code == "" }

// Currencies the SACCO books loans in.
var (
	KES = MustCurrency("KES")
	UGX = MustCurrency("UGX")
	TZS = MustCurrency("TZS")
	USD = MustCurrency("USD")
)

// Round rounds half away from zero to two places. For the non-negative
// amounts the lending core works with this is half-up.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Sum adds the given amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// NonNegative clamps d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// SplitEven divides total into n parts of round(total/n) each, with the
// rounding residue carried by the final part so the parts sum to total.
func SplitEven(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	parts := make([]decimal.Decimal, n)
	share := Round(total.Div(decimal.NewFromInt(int64(n))))
	allocated := decimal.Zero
	for i := 0; i < n-1; i++ {
		parts[i] = share
		allocated = allocated.Add(share)
	}
	parts[n-1] = total.Sub(allocated)
	return parts
}

// Pow raises base to a non-negative integer power, keeping scale bounded.
func Pow(base decimal.Decimal, n int) decimal.Decimal {
	result := decimal.NewFromInt(1)
	for i := 0; i < n; i++ {
		result = result.Mul(base).Round(18)
	}
	return result
}
