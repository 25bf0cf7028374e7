package service_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/model"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/service"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/money"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/testutil"
)

func product(strategy valueobject.InterestStrategy, rate string, term int) model.Product {
	return model.Product{
		ID:                  testutil.ProductID,
		Name:                "Biashara Loan",
		Currency:            money.KES,
		MinPrincipal:        testutil.D("100"),
		MaxPrincipal:        testutil.D("1000000"),
		InterestRate:        testutil.D(rate),
		Strategy:            strategy,
		TermPeriods:         term,
		MinTermPeriods:      1,
		MaxTermPeriods:      60,
		TermUnit:            valueobject.TermMonths,
		PenaltyRatePerAnnum: testutil.D("36.5"),
		ApplicationFee:      testutil.D("50"),
		Active:              true,
	}
}

func disburse(t *testing.T, p model.Product, principal string) model.Loan {
	t.Helper()
	loan, err := service.NewScheduleGenerator().Disburse(p, service.Disbursement{
		ApplicationID: "APP-" + principal,
		CustomerID:    testutil.CustomerID,
		Principal:     testutil.D(principal),
		DisbursedAt:   testutil.DisbursedAt,
	}, testutil.DisbursedAt)
	require.NoError(t, err)
	return loan.ClearEvents()
}

// flatLoan is 1200 over three months at 10% flat: 3 × (400 + 40).
func flatLoan(t *testing.T) model.Loan {
	return disburse(t, product(valueobject.FlatRate, "10", 3), "1200")
}

func sumPaid(loan model.Loan) (principal, interest decimal.Decimal) {
	principal, interest = decimal.Zero, decimal.Zero
	for _, inst := range loan.Installments() {
		principal = principal.Add(inst.PrincipalPaid)
		interest = interest.Add(inst.InterestPaid)
	}
	return principal, interest
}

func at(days int) time.Time {
	return testutil.DisbursedAt.AddDate(0, 0, days)
}
