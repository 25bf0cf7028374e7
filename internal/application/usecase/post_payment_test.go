package usecase_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/application/dto"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/event"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/lenderr"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/model"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/testutil"
)

func TestPostPayment_Execute(t *testing.T) {
	t.Run("allocates oldest installment first", func(t *testing.T) {
		h := newHarness(t)
		loan := h.mustDisburse(t, "APP-1")

		resp, err := h.payments.Execute(context.Background(), dto.PostPaymentRequest{
			LoanID:    loan.ID,
			Amount:    testutil.D("500"),
			Reference: "MPESA-001",
		})

		require.NoError(t, err)
		testutil.AssertDecimal(t, "500", resp.Applied)
		testutil.AssertDecimalZero(t, resp.Penalty)
		testutil.AssertDecimal(t, "80", resp.Interest)
		testutil.AssertDecimal(t, "420", resp.Principal)
		testutil.AssertDecimal(t, "820", resp.Outstanding)
		testutil.AssertDecimalZero(t, resp.Suspended)
		assert.Empty(t, resp.SuspenseID)

		stored := h.loan(t, loan.ID)
		first, _ := stored.Installment(1)
		assert.True(t, first.IsPaid())
		assert.Equal(t, "MPESA-001", first.PaymentReference)
		assert.Contains(t, h.eventTypes(t), event.TypePaymentPosted)
	})

	t.Run("holder reference selects the oldest active loan", func(t *testing.T) {
		h := newHarness(t)
		older := h.mustDisburse(t, "APP-1")
		h.now = h.now.AddDate(0, 0, 1)
		h.mustDisburse(t, "APP-2")

		resp, err := h.payments.Execute(context.Background(), dto.PostPaymentRequest{
			HolderRef: testutil.CustomerTel,
			Amount:    testutil.D("100"),
			Reference: "MPESA-002",
		})

		require.NoError(t, err)
		assert.Equal(t, older.ID, resp.LoanID)
	})

	t.Run("overpayment is parked and feeds the next active loan", func(t *testing.T) {
		h := newHarness(t)
		first := h.mustDisburse(t, "APP-1")
		second := h.mustDisburse(t, "APP-2")

		resp, err := h.payments.Execute(context.Background(), dto.PostPaymentRequest{
			LoanID:    first.ID,
			Amount:    testutil.D("1500"),
			Reference: "BANK-001",
		})

		require.NoError(t, err)
		testutil.AssertDecimal(t, "1320", resp.Applied)
		testutil.AssertDecimal(t, "180", resp.Suspended)
		assert.Equal(t, string(valueobject.ReasonOverpayment), resp.SuspenseReason)
		assert.Equal(t, "PAID", resp.LoanStatus)

		testutil.AssertDecimal(t, "1140", h.loan(t, second.ID).TotalOutstanding())
		held, err := h.store.Repos().Suspense.FindByID(context.Background(), resp.SuspenseID)
		require.NoError(t, err)
		assert.Equal(t, valueobject.SuspenseProcessed, held.Status())
	})

	t.Run("overpayment with nowhere to go stays in suspense", func(t *testing.T) {
		h := newHarness(t)
		loan := h.mustDisburse(t, "APP-1")

		resp, err := h.payments.Execute(context.Background(), dto.PostPaymentRequest{
			LoanID:    loan.ID,
			Amount:    testutil.D("1400"),
			Reference: "BANK-002",
		})

		require.NoError(t, err)
		held, err := h.store.Repos().Suspense.FindByID(context.Background(), resp.SuspenseID)
		require.NoError(t, err)
		testutil.AssertDecimal(t, "80", held.Remaining())
		assert.Equal(t, valueobject.SuspenseWaiting, held.Status())
	})

	t.Run("unknown payer goes to suspense", func(t *testing.T) {
		h := newHarness(t)

		resp, err := h.payments.Execute(context.Background(), dto.PostPaymentRequest{
			HolderRef: "254799999999",
			Amount:    testutil.D("250"),
			Reference: "MPESA-003",
		})

		require.NoError(t, err)
		assert.Empty(t, resp.LoanID)
		testutil.AssertDecimal(t, "250", resp.Suspended)
		assert.Equal(t, string(valueobject.ReasonMissingCustomer), resp.SuspenseReason)
		assert.Contains(t, h.eventTypes(t), event.TypePaymentSuspended)
	})

	t.Run("payer without an active loan goes to suspense", func(t *testing.T) {
		h := newHarness(t)

		resp, err := h.payments.Execute(context.Background(), dto.PostPaymentRequest{
			HolderRef: testutil.CustomerID,
			Amount:    testutil.D("250"),
			Reference: "MPESA-004",
		})

		require.NoError(t, err)
		assert.Equal(t, string(valueobject.ReasonNoActiveLoan), resp.SuspenseReason)
	})

	t.Run("explicit closed loan is rejected", func(t *testing.T) {
		h := newHarness(t)
		loan := h.mustDisburse(t, "APP-1")
		_, err := h.waivers.WaiveFull(context.Background(), dto.WaiveRequest{LoanID: loan.ID, Approval: approval()})
		require.NoError(t, err)

		_, err = h.payments.Execute(context.Background(), dto.PostPaymentRequest{
			LoanID:    loan.ID,
			Amount:    testutil.D("100"),
			Reference: "MPESA-005",
		})

		assert.ErrorIs(t, err, lenderr.ErrStateConflict)
	})

	t.Run("a reference is posted once", func(t *testing.T) {
		h := newHarness(t)
		loan := h.mustDisburse(t, "APP-1")
		req := dto.PostPaymentRequest{LoanID: loan.ID, Amount: testutil.D("500"), Reference: "MPESA-006"}
		_, err := h.payments.Execute(context.Background(), req)
		require.NoError(t, err)

		_, err = h.payments.Execute(context.Background(), req)
		assert.ErrorIs(t, err, lenderr.ErrStateConflict)

		// Redelivered by holder ref instead of loan id.
		_, err = h.payments.Execute(context.Background(), dto.PostPaymentRequest{
			HolderRef: testutil.CustomerTel, Amount: testutil.D("500"), Reference: "MPESA-006",
		})
		assert.ErrorIs(t, err, lenderr.ErrStateConflict)

		stored := h.loan(t, loan.ID)
		testutil.AssertDecimal(t, "500", stored.TotalPaid())
		testutil.AssertDecimal(t, "820", stored.TotalOutstanding())
		assertVersion(t, stored, 2)

		receipt, err := h.store.Repos().Receipts.FindByReference(context.Background(), "MPESA-006")
		require.NoError(t, err)
		assert.Equal(t, loan.ID, receipt.LoanID)
		testutil.AssertDecimal(t, "500", receipt.Amount)
	})

	t.Run("suspended references are deduplicated too", func(t *testing.T) {
		h := newHarness(t)
		req := dto.PostPaymentRequest{HolderRef: "254799999999", Amount: testutil.D("250"), Reference: "MPESA-007"}
		first, err := h.payments.Execute(context.Background(), req)
		require.NoError(t, err)

		_, err = h.payments.Execute(context.Background(), req)
		assert.ErrorIs(t, err, lenderr.ErrStateConflict)

		receipt, err := h.store.Repos().Receipts.FindByReference(context.Background(), "MPESA-007")
		require.NoError(t, err)
		assert.Equal(t, first.SuspenseID, receipt.SuspenseID)
		held, err := h.store.Repos().Suspense.FindOutstandingByHolders(context.Background(), "", "254799999999")
		require.NoError(t, err)
		assert.Len(t, held, 1)
	})

	t.Run("rejects malformed requests", func(t *testing.T) {
		h := newHarness(t)
		cases := map[string]dto.PostPaymentRequest{
			"no target":       {Amount: testutil.D("10"), Reference: "R"},
			"zero amount":     {HolderRef: testutil.CustomerID, Amount: testutil.D("0"), Reference: "R"},
			"sub-cent amount": {HolderRef: testutil.CustomerID, Amount: testutil.D("10.005"), Reference: "R"},
			"no reference":    {HolderRef: testutil.CustomerID, Amount: testutil.D("10")},
		}
		for name, req := range cases {
			_, err := h.payments.Execute(context.Background(), req)
			assert.ErrorIs(t, err, lenderr.ErrValidation, name)
		}
	})

	t.Run("unknown loan", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.payments.Execute(context.Background(), dto.PostPaymentRequest{
			LoanID:    "LOAN-NONE",
			Amount:    testutil.D("10"),
			Reference: "R",
		})
		assert.ErrorIs(t, err, lenderr.ErrNotFound)
	})
}

func TestPostPayment_ExecuteBatch(t *testing.T) {
	h := newHarness(t)
	loan := h.mustDisburse(t, "APP-1")
	items := make([]dto.PostPaymentRequest, 0, 6)
	for i := 0; i < 6; i++ {
		items = append(items, dto.PostPaymentRequest{
			LoanID:    loan.ID,
			Amount:    testutil.D("100"),
			Reference: fmt.Sprintf("BATCH-%d", i),
		})
	}

	resp, err := h.payments.ExecuteBatch(context.Background(), dto.BatchPostPaymentsRequest{Items: items})

	require.NoError(t, err)
	assert.Equal(t, 6, resp.Succeeded)
	assert.Zero(t, resp.Failed)

	stored := h.loan(t, loan.ID)
	testutil.AssertDecimal(t, "600", stored.TotalPaid())
	testutil.AssertDecimal(t, "720", stored.TotalOutstanding())
	require.NoError(t, stored.CheckConsistency())
	assertVersion(t, stored, 7)
}

func assertVersion(t *testing.T, loan model.Loan, want int) {
	t.Helper()
	assert.Equal(t, want, loan.Version(), "one save per payment")
}
