package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/application/dto"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/testutil"
)

func TestPaymentsAndAccrualRunConcurrently(t *testing.T) {
	h := newHarness(t)
	loan := h.mustDisburse(t, "APP-1")
	h.now = testutil.Day(2026, time.March, 25)

	const payments = 12
	asOfs := []time.Time{
		testutil.Day(2026, time.February, 20),
		testutil.Day(2026, time.March, 1),
		testutil.Day(2026, time.March, 10),
		testutil.Day(2026, time.March, 20),
		testutil.Day(2026, time.March, 25),
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		errs    []error
		accrued = decimal.Zero
		applied = decimal.Zero
	)
	record := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err)
	}

	for i := 0; i < payments; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := h.payments.Execute(context.Background(), dto.PostPaymentRequest{
				LoanID:    loan.ID,
				Amount:    testutil.D("50"),
				Reference: fmt.Sprintf("MPESA-C%02d", i),
			})
			if err != nil {
				record(err)
				return
			}
			mu.Lock()
			applied = applied.Add(resp.Applied)
			mu.Unlock()
		}(i)
	}
	for _, asOf := range asOfs {
		wg.Add(1)
		go func(asOf time.Time) {
			defer wg.Done()
			resp, err := h.penalties.Execute(context.Background(), dto.AccruePenaltiesRequest{LoanID: loan.ID, AsOf: asOf})
			if err != nil {
				record(err)
				return
			}
			mu.Lock()
			accrued = accrued.Add(resp.Accrued)
			mu.Unlock()
		}(asOf)
	}
	wg.Wait()
	require.Empty(t, errs)

	stored := h.loan(t, loan.ID)
	require.NoError(t, stored.CheckConsistency())

	testutil.AssertDecimal(t, "600", applied)
	testutil.AssertDecimal(t, "600", stored.TotalPaid())
	testutil.AssertDecimal(t, "1320", stored.TotalPayable().Sub(accrued))
	testutil.AssertDecimal(t, stored.TotalPayable().Sub(stored.TotalPaid()).Sub(stored.TotalWaived()).String(), stored.TotalOutstanding())

	penaltyDue := decimal.Zero
	for _, inst := range stored.Installments() {
		penaltyDue = penaltyDue.Add(inst.PenaltyDue)
	}
	testutil.AssertDecimal(t, accrued.String(), penaltyDue)
	assert.True(t, accrued.IsPositive())
	assert.GreaterOrEqual(t, stored.Version(), 1+payments)
}
