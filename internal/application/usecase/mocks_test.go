package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/application/usecase"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/lenderr"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/model"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/port"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/service"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/events"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/testutil"
)

// --- Mock implementations ---

type mockLoanRepo struct {
	findByIDFunc        func(ctx context.Context, id string) (model.Loan, error)
	saveFunc            func(ctx context.Context, loan model.Loan) error
	listIDsByStatusFunc func(ctx context.Context, statuses ...valueobject.LoanStatus) ([]string, error)
	savedLoans          []model.Loan
}

func (m *mockLoanRepo) Save(ctx context.Context, loan model.Loan) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, loan)
	}
	m.savedLoans = append(m.savedLoans, loan)
	return nil
}

func (m *mockLoanRepo) FindByID(ctx context.Context, id string) (model.Loan, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return model.Loan{}, lenderr.NotFound("loan", id)
}

func (m *mockLoanRepo) FindByApplicationID(_ context.Context, applicationID string) (model.Loan, error) {
	return model.Loan{}, lenderr.NotFound("loan for application", applicationID)
}

func (m *mockLoanRepo) FindByCustomerID(_ context.Context, _ string, _ ...valueobject.LoanStatus) ([]model.Loan, error) {
	return nil, nil
}

func (m *mockLoanRepo) ListIDsByStatus(ctx context.Context, statuses ...valueobject.LoanStatus) ([]string, error) {
	if m.listIDsByStatusFunc != nil {
		return m.listIDsByStatusFunc(ctx, statuses...)
	}
	return nil, nil
}

type mockReceiptRepo struct {
	recordFunc          func(ctx context.Context, receipt model.PaymentReceipt) error
	findByReferenceFunc func(ctx context.Context, reference string) (model.PaymentReceipt, error)
	recorded            []model.PaymentReceipt
}

func (m *mockReceiptRepo) Record(ctx context.Context, receipt model.PaymentReceipt) error {
	if m.recordFunc != nil {
		return m.recordFunc(ctx, receipt)
	}
	m.recorded = append(m.recorded, receipt)
	return nil
}

func (m *mockReceiptRepo) FindByReference(ctx context.Context, reference string) (model.PaymentReceipt, error) {
	if m.findByReferenceFunc != nil {
		return m.findByReferenceFunc(ctx, reference)
	}
	return model.PaymentReceipt{}, lenderr.NotFound("payment receipt", reference)
}

type mockOutbox struct {
	stored []events.OutboxEntry
}

func (m *mockOutbox) Store(_ context.Context, entries []events.OutboxEntry) error {
	m.stored = append(m.stored, entries...)
	return nil
}

func (m *mockOutbox) FetchUnpublished(_ context.Context, _ int) ([]events.OutboxEntry, error) {
	return nil, nil
}

func (m *mockOutbox) MarkPublished(_ context.Context, _ []string, _ time.Time) error { return nil }

func (m *mockOutbox) MarkFailed(_ context.Context, _ string, _ string) error { return nil }

// mockUnitOfWork hands fn the same repositories inside and outside a
// transaction and reports whatever fn returns.
type mockUnitOfWork struct {
	repos port.Repositories
}

func (m *mockUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos port.Repositories) error) error {
	return fn(ctx, m.repos)
}

func (m *mockUnitOfWork) Repos() port.Repositories { return m.repos }

type mockCustomerDirectory struct{}

func (mockCustomerDirectory) Resolve(_ context.Context, ref string) (model.Customer, error) {
	return model.Customer{}, lenderr.NotFound("customer", ref)
}

// --- Fixtures ---

// mocked is a set of use cases over func-field mocks.
type mocked struct {
	loans    *mockLoanRepo
	receipts *mockReceiptRepo
	outbox   *mockOutbox
	locker   *mockLocker
	products *mockProductCatalog

	payments  *usecase.PostPaymentUseCase
	penalties *usecase.AccruePenaltiesUseCase
	getLoan   *usecase.GetLoanUseCase
}

func newMocked() *mocked {
	m := &mocked{
		loans:    &mockLoanRepo{},
		receipts: &mockReceiptRepo{},
		outbox:   &mockOutbox{},
		locker:   &mockLocker{},
		products: &mockProductCatalog{},
	}
	deps := usecase.Deps{
		UoW: &mockUnitOfWork{repos: port.Repositories{
			Loans:    m.loans,
			Receipts: m.receipts,
			Outbox:   m.outbox,
		}},
		Locker:    m.locker,
		Products:  m.products,
		Customers: mockCustomerDirectory{},
		Clock:     func() time.Time { return testutil.Day(2026, time.March, 25) },
		Workers:   2,
	}
	engines := usecase.NewEngines(24)
	m.payments = usecase.NewPostPaymentUseCase(deps, engines, usecase.NewReconcileSuspenseUseCase(deps, engines))
	m.penalties = usecase.NewAccruePenaltiesUseCase(deps, engines)
	m.getLoan = usecase.NewGetLoanUseCase(deps)
	return m
}

func disbursedLoan(t *testing.T) model.Loan {
	t.Helper()
	loan, err := service.NewScheduleGenerator().Disburse(flatProduct(), service.Disbursement{
		ApplicationID: "APP-1",
		CustomerID:    testutil.CustomerID,
		Principal:     testutil.D("1200"),
		DisbursedAt:   testutil.DisbursedAt,
	}, testutil.DisbursedAt)
	require.NoError(t, err)
	return loan.ClearEvents()
}

var errConnReset = errors.New("connection reset by peer")
