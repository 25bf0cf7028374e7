package valueobject

import "fmt"

// InterestStrategy selects how interest is computed and spread over a schedule.
type InterestStrategy string

const (
	// FlatRate charges a whole-term rate on the original principal.
	FlatRate InterestStrategy = "FLAT_RATE"
	// ReducingBalance charges a per-period rate on the declining balance (annuity).
	ReducingBalance InterestStrategy = "REDUCING_BALANCE"
	// SimpleInterest charges a per-period rate on the original principal for every period.
	SimpleInterest InterestStrategy = "SIMPLE_INTEREST"
	// CompoundInterest compounds a per-period rate over the term.
	CompoundInterest InterestStrategy = "COMPOUND_INTEREST"
	// AddOnInterest adds per-period interest on the original principal up front
	// and repays principal plus interest in equal installments.
	AddOnInterest InterestStrategy = "ADD_ON_INTEREST"
)

// ParseInterestStrategy validates s.
func ParseInterestStrategy(s string) (InterestStrategy, error) {
	switch v := InterestStrategy(s); v {
	case FlatRate, ReducingBalance, SimpleInterest, CompoundInterest, AddOnInterest:
		return v, nil
	}
	return "", fmt.Errorf("invalid interest strategy: %q", s)
}

func (s InterestStrategy) String() string { return string(s) }
