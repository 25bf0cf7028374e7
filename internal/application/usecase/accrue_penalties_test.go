package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/application/dto"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/event"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/testutil"
)

func TestAccruePenalties_Execute(t *testing.T) {
	t.Run("charges overdue installments once per day", func(t *testing.T) {
		h := newHarness(t)
		loan := h.mustDisburse(t, "APP-1")
		h.now = testutil.Day(2026, 2, 25)

		resp, err := h.penalties.Execute(context.Background(), dto.AccruePenaltiesRequest{})
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Loans)
		testutil.AssertDecimal(t, "4.40", resp.Accrued)
		assert.Empty(t, resp.Failures)

		stored := h.loan(t, loan.ID)
		testutil.AssertDecimal(t, "4.40", stored.OutstandingPenalty())
		testutil.AssertDecimal(t, "1324.40", stored.TotalOutstanding())
		assert.Equal(t, valueobject.LoanStatusArrears, stored.Status())
		assert.Contains(t, h.eventTypes(t), event.TypePenaltyAccrued)

		again, err := h.penalties.Execute(context.Background(), dto.AccruePenaltiesRequest{LoanID: loan.ID})
		require.NoError(t, err)
		testutil.AssertDecimalZero(t, again.Accrued)
		testutil.AssertDecimal(t, "4.40", h.loan(t, loan.ID).OutstandingPenalty())
	})

	t.Run("nothing due leaves the loan untouched", func(t *testing.T) {
		h := newHarness(t)
		loan := h.mustDisburse(t, "APP-1")
		h.now = testutil.Day(2026, 2, 1)

		resp, err := h.penalties.Execute(context.Background(), dto.AccruePenaltiesRequest{LoanID: loan.ID})

		require.NoError(t, err)
		testutil.AssertDecimalZero(t, resp.Accrued)
		assert.Equal(t, 1, h.loan(t, loan.ID).Version())
	})

	t.Run("defaults loans past the product threshold", func(t *testing.T) {
		h := newHarness(t)
		loan := h.mustDisburse(t, "APP-1")
		h.now = testutil.Day(2026, 5, 20)

		resp, err := h.penalties.Execute(context.Background(), dto.AccruePenaltiesRequest{})

		require.NoError(t, err)
		assert.Equal(t, 1, resp.Defaulted)
		assert.True(t, resp.Accrued.IsPositive())
		assert.Equal(t, valueobject.LoanStatusDefaulted, h.loan(t, loan.ID).Status())
		assert.Contains(t, h.eventTypes(t), event.TypeLoanDefaulted)
	})

	t.Run("closed loans are skipped", func(t *testing.T) {
		h := newHarness(t)
		loan := h.mustDisburse(t, "APP-1")
		_, err := h.payments.Execute(context.Background(), dto.PostPaymentRequest{
			LoanID: loan.ID, Amount: testutil.D("1320"), Reference: "PAYOFF",
		})
		require.NoError(t, err)
		h.now = testutil.Day(2026, 5, 20)

		resp, err := h.penalties.Execute(context.Background(), dto.AccruePenaltiesRequest{})

		require.NoError(t, err)
		assert.Zero(t, resp.Loans)
	})
}
