package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/application/dto"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/event"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/lenderr"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/testutil"
)

func TestRolloverLoan_Execute(t *testing.T) {
	settleInterest := func(t *testing.T, h *harness, loanID string) {
		t.Helper()
		_, err := h.waivers.WaiveInterest(context.Background(), dto.WaiveRequest{
			LoanID: loanID, Amount: testutil.D("120"), Approval: approval(),
		})
		require.NoError(t, err)
	}

	t.Run("carries principal and the product fee", func(t *testing.T) {
		h := newHarness(t)
		loan := h.mustDisburse(t, "APP-1")
		settleInterest(t, h, loan.ID)

		resp, err := h.rollover.Execute(context.Background(), dto.RolloverRequest{
			LoanID:     loan.ID,
			ApprovedBy: testutil.Approver,
		})

		require.NoError(t, err)
		testutil.AssertDecimal(t, "1200", resp.Carried)
		assert.Equal(t, "ROLLED_OVER", resp.Original.Status)
		assert.Equal(t, resp.Replacement.ID, resp.Original.RolledOverInto)
		testutil.AssertDecimalZero(t, resp.Original.TotalOutstanding)

		assert.Equal(t, "CURRENT", resp.Replacement.Status)
		assert.Equal(t, loan.ID, resp.Replacement.RolledOverFrom)
		testutil.AssertDecimal(t, "1250", resp.Replacement.Principal)
		assert.Equal(t, 3, resp.Replacement.TermPeriods)

		records, err := h.store.Repos().Rollovers.FindByLoanID(context.Background(), resp.Replacement.ID)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, resp.RecordID, records[0].ID)
		assert.Contains(t, h.eventTypes(t), event.TypeLoanRolledOver)
	})

	t.Run("explicit fee overrides the product", func(t *testing.T) {
		h := newHarness(t)
		loan := h.mustDisburse(t, "APP-1")
		settleInterest(t, h, loan.ID)
		fee := testutil.D("0")

		resp, err := h.rollover.Execute(context.Background(), dto.RolloverRequest{
			LoanID:         loan.ID,
			ApplicationFee: &fee,
			ApprovedBy:     testutil.Approver,
		})

		require.NoError(t, err)
		testutil.AssertDecimal(t, "1200", resp.Replacement.Principal)
	})

	t.Run("held suspense moves to the replacement", func(t *testing.T) {
		h := newHarness(t)
		loan := h.mustDisburse(t, "APP-1")
		settleInterest(t, h, loan.ID)
		_, err := h.payments.Execute(context.Background(), dto.PostPaymentRequest{
			HolderRef: "254711111111", Amount: testutil.D("100"), Reference: "LATE",
		})
		require.NoError(t, err)
		h.store.PutCustomer(customerWithPhone("254711111111"))

		resp, err := h.rollover.Execute(context.Background(), dto.RolloverRequest{
			LoanID: loan.ID, ApprovedBy: testutil.Approver,
		})

		require.NoError(t, err)
		assert.True(t, resp.Replacement.TotalPaid.Equal(testutil.D("100")))
	})

	t.Run("unpaid interest blocks rollover", func(t *testing.T) {
		h := newHarness(t)
		loan := h.mustDisburse(t, "APP-1")

		_, err := h.rollover.Execute(context.Background(), dto.RolloverRequest{
			LoanID: loan.ID, ApprovedBy: testutil.Approver,
		})

		assert.ErrorIs(t, err, lenderr.ErrStateConflict)
		assert.Equal(t, "CURRENT", h.loan(t, loan.ID).Status().String())
	})

	t.Run("approver is mandatory", func(t *testing.T) {
		h := newHarness(t)
		loan := h.mustDisburse(t, "APP-1")

		_, err := h.rollover.Execute(context.Background(), dto.RolloverRequest{LoanID: loan.ID})

		assert.ErrorIs(t, err, lenderr.ErrValidation)
	})
}
