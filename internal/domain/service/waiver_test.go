package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/lenderr"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/service"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/testutil"
)

func TestWaiverEngine_ComponentWaivers(t *testing.T) {
	engine := service.NewWaiverEngine()
	loan := flatLoan(t)

	t.Run("interest oldest first", func(t *testing.T) {
		next, record, err := engine.WaiveInterest(loan, testutil.D("60"), testutil.Approver, "hardship", at(5))
		require.NoError(t, err)

		first, _ := next.Installment(1)
		second, _ := next.Installment(2)
		testutil.AssertDecimalZero(t, first.OutstandingInterest())
		testutil.AssertDecimal(t, "20", second.OutstandingInterest())
		testutil.AssertDecimal(t, "60", next.TotalWaived())
		testutil.AssertDecimalZero(t, next.TotalPaid())
		require.NoError(t, next.CheckConsistency())

		assert.Equal(t, valueobject.WaiverInterest, record.Type)
		assert.Equal(t, loan.ID(), record.LoanID)
		assert.Equal(t, testutil.Approver, record.ApprovedBy)
		testutil.AssertDecimal(t, "60", record.Amount)
	})

	t.Run("principal", func(t *testing.T) {
		next, _, err := engine.WaivePrincipal(loan, testutil.D("500"), testutil.Approver, "insurance claim", at(5))
		require.NoError(t, err)
		testutil.AssertDecimal(t, "700", next.OutstandingPrincipal())
	})

	t.Run("more than outstanding changes nothing", func(t *testing.T) {
		next, _, err := engine.WaiveInterest(loan, testutil.D("120.01"), testutil.Approver, "hardship", at(5))
		assert.ErrorIs(t, err, lenderr.ErrValidation)
		testutil.AssertDecimal(t, "1320", next.TotalOutstanding())
		testutil.AssertDecimalZero(t, next.TotalWaived())

		_, _, err = engine.WaivePenalty(loan, testutil.D("1"), testutil.Approver, "none accrued", at(5))
		assert.ErrorIs(t, err, lenderr.ErrValidation)
	})

	t.Run("defaulted loans can still be waived", func(t *testing.T) {
		defaulted, err := loan.MarkDefaulted(95, at(120))
		require.NoError(t, err)
		next, _, err := engine.WaiveInterest(defaulted, testutil.D("10"), testutil.Approver, "settlement", at(120))
		require.NoError(t, err)
		assert.Equal(t, valueobject.LoanStatusDefaulted, next.Status())
	})
}

func TestWaiverEngine_WaiveFull(t *testing.T) {
	engine := service.NewWaiverEngine()
	loan := flatLoan(t)
	paid, _, err := service.NewPaymentAllocator().Apply(loan, testutil.D("300"), "MPESA-1", at(3))
	require.NoError(t, err)

	next, record, err := engine.WaiveFull(paid, testutil.Approver, "deceased member", at(4))
	require.NoError(t, err)

	assert.Equal(t, valueobject.LoanStatusWrittenOff, next.Status())
	testutil.AssertDecimalZero(t, next.TotalOutstanding())
	testutil.AssertDecimal(t, "300", next.TotalPaid())
	testutil.AssertDecimal(t, "1020", next.TotalWaived())
	assert.Equal(t, valueobject.WaiverFull, record.Type)
	testutil.AssertDecimal(t, "1020", record.Amount)
	require.NoError(t, next.CheckConsistency())

	_, _, err = engine.WaiveInterest(next, testutil.D("1"), testutil.Approver, "again", at(5))
	assert.ErrorIs(t, err, lenderr.ErrStateConflict)
}
