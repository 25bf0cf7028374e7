package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/application/dto"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/event"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/lenderr"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/testutil"
)

func TestRestructureLoan(t *testing.T) {
	t.Run("extend term keeps paid history and records the change", func(t *testing.T) {
		h := newHarness(t)
		loan := h.mustDisburse(t, "APP-1")
		_, err := h.payments.Execute(context.Background(), dto.PostPaymentRequest{
			LoanID: loan.ID, Amount: testutil.D("440"), Reference: "MPESA-001",
		})
		require.NoError(t, err)

		resp, err := h.restructure.ExtendTerm(context.Background(), dto.ExtendTermRequest{
			LoanID:         loan.ID,
			NewTermPeriods: 6,
			Approval:       approval(),
		})

		require.NoError(t, err)
		assert.Equal(t, string(valueobject.RestructureExtendTerm), resp.Type)
		assert.NotEmpty(t, resp.RecordID)
		assert.Equal(t, 1, resp.Loan.RestructureCount)
		testutil.AssertDecimal(t, "800", resp.Loan.OutstandingPrincipal)

		first := resp.Loan.Installments[0]
		assert.Equal(t, 1, first.Number)
		testutil.AssertDecimal(t, "400", first.PrincipalPaid)
		testutil.AssertDecimal(t, "40", first.InterestPaid)

		stored := h.loan(t, loan.ID)
		require.NoError(t, stored.CheckConsistency())
		records, err := h.store.Repos().Restructures.FindByLoanID(context.Background(), loan.ID)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, testutil.Approver, records[0].ApprovedBy)
		assert.Contains(t, h.eventTypes(t), event.TypeLoanRestructured)
	})

	t.Run("change rate", func(t *testing.T) {
		h := newHarness(t)
		loan := h.mustDisburse(t, "APP-1")

		resp, err := h.restructure.ChangeRate(context.Background(), dto.ChangeRateRequest{
			LoanID:   loan.ID,
			NewRate:  testutil.D("6"),
			Approval: approval(),
		})

		require.NoError(t, err)
		assert.Equal(t, string(valueobject.RestructureChangeRate), resp.Type)
		assert.True(t, resp.Loan.OutstandingInterest.LessThan(testutil.D("120")))
		testutil.AssertDecimal(t, "1200", resp.Loan.OutstandingPrincipal)
	})

	t.Run("reduce monthly payment stays within the product maximum", func(t *testing.T) {
		h := newHarness(t)
		loan := h.mustDisburse(t, "APP-1")

		resp, err := h.restructure.ReduceMonthlyPayment(context.Background(), dto.ReduceMonthlyPaymentRequest{
			LoanID:            loan.ID,
			TargetInstallment: testutil.D("250"),
			Approval:          approval(),
		})
		require.NoError(t, err)
		assert.Greater(t, resp.Loan.TermPeriods, 3)
		for _, inst := range resp.Loan.Installments {
			assert.True(t, inst.PrincipalDue.Add(inst.InterestDue).LessThanOrEqual(testutil.D("250.01")), "installment %d", inst.Number)
		}

		_, err = h.restructure.ReduceMonthlyPayment(context.Background(), dto.ReduceMonthlyPaymentRequest{
			LoanID:            loan.ID,
			TargetInstallment: testutil.D("1"),
			Approval:          approval(),
		})
		assert.ErrorIs(t, err, lenderr.ErrValidation)
	})

	t.Run("reduce monthly payment rejects a target already met", func(t *testing.T) {
		h := newHarness(t)
		loan := h.mustDisburse(t, "APP-1")

		_, err := h.restructure.ReduceMonthlyPayment(context.Background(), dto.ReduceMonthlyPaymentRequest{
			LoanID:            loan.ID,
			TargetInstallment: testutil.D("440"),
			Approval:          approval(),
		})

		assert.ErrorIs(t, err, lenderr.ErrValidation)
		stored := h.loan(t, loan.ID)
		assert.Equal(t, 3, stored.TermPeriods())
		assert.Equal(t, 1, stored.Version())
	})

	t.Run("complete restructure", func(t *testing.T) {
		h := newHarness(t)
		loan := h.mustDisburse(t, "APP-1")

		resp, err := h.restructure.CompleteRestructure(context.Background(), dto.CompleteRestructureRequest{
			LoanID:         loan.ID,
			NewTermPeriods: 12,
			NewRate:        testutil.D("12"),
			Approval:       approval(),
		})

		require.NoError(t, err)
		assert.Equal(t, string(valueobject.RestructureComplete), resp.Type)
		assert.Equal(t, string(valueobject.ReducingBalance), resp.Loan.Strategy)
		require.NoError(t, h.loan(t, loan.ID).CheckConsistency())
	})

	t.Run("rejects", func(t *testing.T) {
		h := newHarness(t)
		loan := h.mustDisburse(t, "APP-1")

		_, err := h.restructure.ExtendTerm(context.Background(), dto.ExtendTermRequest{LoanID: loan.ID, NewTermPeriods: 6})
		assert.ErrorIs(t, err, lenderr.ErrValidation, "approval is mandatory")

		_, err = h.restructure.ExtendTerm(context.Background(), dto.ExtendTermRequest{
			LoanID: loan.ID, NewTermPeriods: 240, Approval: approval(),
		})
		assert.ErrorIs(t, err, lenderr.ErrValidation, "term above maximum")

		_, err = h.restructure.ExtendTerm(context.Background(), dto.ExtendTermRequest{
			LoanID: "LOAN-NONE", NewTermPeriods: 6, Approval: approval(),
		})
		assert.ErrorIs(t, err, lenderr.ErrNotFound)

		records, err := h.store.Repos().Restructures.FindByLoanID(context.Background(), loan.ID)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}
