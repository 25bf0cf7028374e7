package model

import (
	"github.com/shopspring/decimal"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/lenderr"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/money"
)

var hundred = decimal.NewFromInt(100)

// InstallmentBreakdown is one period of a computed repayment plan, before it
// is dated and turned into an Installment.
type InstallmentBreakdown struct {
	Period           int
	Principal        decimal.Decimal
	Interest         decimal.Decimal
	RemainingBalance decimal.Decimal
}

// Total is principal plus interest.
func (b InstallmentBreakdown) Total() decimal.Decimal {
	return b.Principal.Add(b.Interest)
}

// CalculateInstallments splits principal and interest over termPeriods using
// strategy. ratePercent is a per-period rate except for FLAT_RATE, where it
// is the rate for the whole term. Principal components always sum to
// principal exactly; rounding residue is carried by the final period.
func CalculateInstallments(
	principal, ratePercent decimal.Decimal,
	termPeriods int,
	strategy valueobject.InterestStrategy,
) ([]InstallmentBreakdown, error) {
	if !principal.IsPositive() {
		return nil, lenderr.Validation("principal", "must be positive").WithAmount(principal)
	}
	if ratePercent.IsNegative() {
		return nil, lenderr.Validation("interest_rate", "must not be negative").WithAmount(ratePercent)
	}
	if termPeriods <= 0 {
		return nil, lenderr.Validation("term_periods", "must be positive, got %d", termPeriods)
	}

	switch strategy {
	case valueobject.FlatRate:
		return flatRate(principal, ratePercent, termPeriods), nil
	case valueobject.ReducingBalance:
		return reducingBalance(principal, ratePercent.Div(hundred), termPeriods), nil
	case valueobject.SimpleInterest:
		return simpleInterest(principal, ratePercent, termPeriods), nil
	case valueobject.CompoundInterest:
		return compoundInterest(principal, ratePercent.Div(hundred), termPeriods), nil
	case valueobject.AddOnInterest:
		return addOnInterest(principal, ratePercent, termPeriods), nil
	default:
		return nil, lenderr.Validation("interest_strategy", "unsupported strategy %q", strategy)
	}
}

// AmortizedPayment is the level reducing-balance payment for principal over n
// periods at per-period rate r (a fraction, not a percent).
//
//	payment = P * r * (1+r)^n / ((1+r)^n - 1)
func AmortizedPayment(principal, r decimal.Decimal, n int) decimal.Decimal {
	if n <= 0 {
		return decimal.Zero
	}
	if r.IsZero() {
		return money.Round(principal.Div(decimal.NewFromInt(int64(n))))
	}
	factor := money.Pow(decimal.NewFromInt(1).Add(r), n)
	return money.Round(principal.Mul(r).Mul(factor).Div(factor.Sub(decimal.NewFromInt(1))))
}

// flatRate: whole-term interest on the original principal, spread evenly.
func flatRate(principal, ratePercent decimal.Decimal, n int) []InstallmentBreakdown {
	totalInterest := money.Round(principal.Mul(ratePercent).Div(hundred))
	return evenSplit(principal, totalInterest, n)
}

// simpleInterest: per-period interest on the original principal for every period.
func simpleInterest(principal, ratePercent decimal.Decimal, n int) []InstallmentBreakdown {
	totalInterest := money.Round(principal.Mul(ratePercent).Mul(decimal.NewFromInt(int64(n))).Div(hundred))
	return evenSplit(principal, totalInterest, n)
}

func evenSplit(principal, totalInterest decimal.Decimal, n int) []InstallmentBreakdown {
	principals := money.SplitEven(principal, n)
	interests := money.SplitEven(totalInterest, n)
	return assemble(principal, principals, interests)
}

// addOnInterest: interest is added up front and the sum is repaid in level
// installments. The principal share of each installment is fixed.
func addOnInterest(principal, ratePercent decimal.Decimal, n int) []InstallmentBreakdown {
	totalInterest := money.Round(principal.Mul(ratePercent).Mul(decimal.NewFromInt(int64(n))).Div(hundred))
	installment := money.Round(principal.Add(totalInterest).Div(decimal.NewFromInt(int64(n))))
	principals := money.SplitEven(principal, n)

	interests := make([]decimal.Decimal, n)
	allocated := decimal.Zero
	for i := 0; i < n-1; i++ {
		interests[i] = money.NonNegative(installment.Sub(principals[i]))
		allocated = allocated.Add(interests[i])
	}
	interests[n-1] = money.NonNegative(totalInterest.Sub(allocated))
	return assemble(principal, principals, interests)
}

// reducingBalance: level annuity payment, interest charged on the running balance.
func reducingBalance(principal, r decimal.Decimal, n int) []InstallmentBreakdown {
	if r.IsZero() {
		return evenSplit(principal, decimal.Zero, n)
	}
	payment := AmortizedPayment(principal, r, n)

	out := make([]InstallmentBreakdown, 0, n)
	remaining := principal
	for period := 1; period <= n; period++ {
		interest := money.Round(remaining.Mul(r))
		principalPart := payment.Sub(interest)

		// Last period settles the balance exactly.
		if period == n || principalPart.GreaterThan(remaining) {
			principalPart = remaining
		}
		principalPart = money.NonNegative(principalPart)
		remaining = remaining.Sub(principalPart)

		out = append(out, InstallmentBreakdown{
			Period:           period,
			Principal:        principalPart,
			Interest:         interest,
			RemainingBalance: remaining,
		})
	}
	return out
}

// compoundInterest: the total repayable compounds over the whole term and is
// repaid in level installments. Principal follows the reducing-balance
// amortization shape and interest is the rest of each installment; only the
// rounding residue lands on the final period. The reducing-balance payment
// never exceeds P(1+r)^n/n, so every interest share stays non-negative.
func compoundInterest(principal, r decimal.Decimal, n int) []InstallmentBreakdown {
	if r.IsZero() {
		return evenSplit(principal, decimal.Zero, n)
	}
	totalRepayable := money.Round(principal.Mul(money.Pow(decimal.NewFromInt(1).Add(r), n)))
	totalInterest := totalRepayable.Sub(principal)
	installment := money.Round(totalRepayable.Div(decimal.NewFromInt(int64(n))))

	reference := reducingBalance(principal, r, n)
	principals := make([]decimal.Decimal, n)
	interests := make([]decimal.Decimal, n)
	allocatedInterest := decimal.Zero
	for i := 0; i < n-1; i++ {
		principals[i] = reference[i].Principal
		interests[i] = installment.Sub(principals[i])
		allocatedInterest = allocatedInterest.Add(interests[i])
	}
	principals[n-1] = reference[n-1].Principal
	interests[n-1] = totalInterest.Sub(allocatedInterest)
	return assemble(principal, principals, interests)
}

func assemble(principal decimal.Decimal, principals, interests []decimal.Decimal) []InstallmentBreakdown {
	out := make([]InstallmentBreakdown, len(principals))
	remaining := principal
	for i := range principals {
		remaining = remaining.Sub(principals[i])
		out[i] = InstallmentBreakdown{
			Period:           i + 1,
			Principal:        principals[i],
			Interest:         interests[i],
			RemainingBalance: remaining,
		}
	}
	return out
}
