package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/application/dto"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/lenderr"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/model"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/testutil"
)

func TestPostPayment_StorageFailures(t *testing.T) {
	loan := disbursedLoan(t)
	req := dto.PostPaymentRequest{LoanID: loan.ID(), Amount: testutil.D("500"), Reference: "MPESA-M1"}

	t.Run("posts through the repositories", func(t *testing.T) {
		m := newMocked()
		m.loans.findByIDFunc = func(context.Context, string) (model.Loan, error) { return loan, nil }

		resp, err := m.payments.Execute(context.Background(), req)

		require.NoError(t, err)
		testutil.AssertDecimal(t, "500", resp.Applied)
		require.Len(t, m.loans.savedLoans, 1)
		require.Len(t, m.receipts.recorded, 1)
		assert.Equal(t, loan.ID(), m.receipts.recorded[0].LoanID)
		assert.Equal(t, "MPESA-M1", m.receipts.recorded[0].Reference)
		assert.NotEmpty(t, m.outbox.stored)
	})

	t.Run("failed save records nothing", func(t *testing.T) {
		m := newMocked()
		m.loans.findByIDFunc = func(context.Context, string) (model.Loan, error) { return loan, nil }
		m.loans.saveFunc = func(context.Context, model.Loan) error { return errConnReset }

		_, err := m.payments.Execute(context.Background(), req)

		assert.ErrorIs(t, err, errConnReset)
		assert.Contains(t, err.Error(), "save loan")
		assert.Empty(t, m.receipts.recorded)
		assert.Empty(t, m.outbox.stored)
	})

	t.Run("receipt lookup failure is not taken as a new reference", func(t *testing.T) {
		m := newMocked()
		m.receipts.findByReferenceFunc = func(context.Context, string) (model.PaymentReceipt, error) {
			return model.PaymentReceipt{}, errConnReset
		}
		m.loans.findByIDFunc = func(context.Context, string) (model.Loan, error) {
			t.Fatal("loan must not be read")
			return model.Loan{}, nil
		}

		_, err := m.payments.Execute(context.Background(), req)

		assert.ErrorIs(t, err, errConnReset)
		assert.False(t, errors.Is(err, lenderr.ErrStateConflict))
	})

	t.Run("reference posted by a concurrent transaction", func(t *testing.T) {
		m := newMocked()
		m.loans.findByIDFunc = func(context.Context, string) (model.Loan, error) { return loan, nil }
		m.receipts.recordFunc = func(_ context.Context, r model.PaymentReceipt) error {
			return lenderr.StateConflict("payment reference %s was already posted", r.Reference)
		}

		_, err := m.payments.Execute(context.Background(), req)

		assert.ErrorIs(t, err, lenderr.ErrStateConflict)
		assert.Empty(t, m.outbox.stored)
	})

	t.Run("lock timeout", func(t *testing.T) {
		m := newMocked()
		m.locker.lockFunc = func(context.Context, string) (func(), error) {
			return nil, context.DeadlineExceeded
		}
		m.loans.findByIDFunc = func(context.Context, string) (model.Loan, error) {
			t.Fatal("loan must not be read without the lock")
			return model.Loan{}, nil
		}

		_, err := m.payments.Execute(context.Background(), req)

		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Contains(t, err.Error(), "lock "+loan.ID())
	})
}

func TestGetLoan_RepositoryFailure(t *testing.T) {
	m := newMocked()
	m.loans.findByIDFunc = func(context.Context, string) (model.Loan, error) { return model.Loan{}, errConnReset }

	_, err := m.getLoan.Execute(context.Background(), dto.GetLoanRequest{LoanID: "LOAN-1"})

	assert.ErrorIs(t, err, errConnReset)
	assert.Zero(t, lenderr.KindOf(err))
}

func TestAccruePenalties_SweepIsolatesFailures(t *testing.T) {
	loan := disbursedLoan(t)
	m := newMocked()
	m.loans.listIDsByStatusFunc = func(context.Context, ...valueobject.LoanStatus) ([]string, error) {
		return []string{loan.ID(), "LOAN-BROKEN"}, nil
	}
	m.loans.findByIDFunc = func(_ context.Context, id string) (model.Loan, error) {
		if id == loan.ID() {
			return loan, nil
		}
		return model.Loan{}, errConnReset
	}

	resp, err := m.penalties.Execute(context.Background(), dto.AccruePenaltiesRequest{
		AsOf: testutil.Day(2026, time.February, 25),
	})

	require.NoError(t, err)
	assert.Equal(t, 2, resp.Loans)
	testutil.AssertDecimal(t, "4.40", resp.Accrued)
	require.Len(t, resp.Failures, 1)
	assert.Equal(t, "LOAN-BROKEN", resp.Failures[0].ID)
	assert.Contains(t, resp.Failures[0].Error, "connection reset")
	require.Len(t, m.loans.savedLoans, 1)
}

func TestAccruePenalties_ProductLookupFailure(t *testing.T) {
	loan := disbursedLoan(t)
	m := newMocked()
	m.loans.findByIDFunc = func(context.Context, string) (model.Loan, error) { return loan, nil }
	m.products.findByIDFunc = func(context.Context, string) (model.Product, error) { return model.Product{}, errConnReset }

	_, err := m.penalties.Execute(context.Background(), dto.AccruePenaltiesRequest{LoanID: loan.ID()})

	assert.ErrorIs(t, err, errConnReset)
	assert.Empty(t, m.loans.savedLoans)
}
