package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/application/dto"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/application/usecase"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/model"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/infrastructure/lock"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/infrastructure/persistence/memory"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/money"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/testutil"
)

// harness wires every use case over the in-memory store with a movable clock.
type harness struct {
	store *memory.Store
	now   time.Time

	disburse    *usecase.DisburseLoanUseCase
	payments    *usecase.PostPaymentUseCase
	penalties   *usecase.AccruePenaltiesUseCase
	restructure *usecase.RestructureLoanUseCase
	waivers     *usecase.WaiveLoanUseCase
	rollover    *usecase.RolloverLoanUseCase
	reconcile   *usecase.ReconcileSuspenseUseCase
	getLoan     *usecase.GetLoanUseCase
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{store: memory.NewStore(), now: testutil.DisbursedAt}
	h.store.PutProduct(flatProduct())
	h.store.PutCustomer(model.Customer{
		ID:     testutil.CustomerID,
		Phone:  testutil.CustomerTel,
		Name:   "Wanjiku Kamau",
		Active: true,
	})

	deps := usecase.Deps{
		UoW:       h.store,
		Locker:    lock.NewLocal(),
		Products:  h.store,
		Customers: h.store,
		Clock:     func() time.Time { return h.now },
		Workers:   2,
	}
	h.wire(deps)
	return h
}

func (h *harness) wire(deps usecase.Deps) {
	engines := usecase.NewEngines(24)
	h.reconcile = usecase.NewReconcileSuspenseUseCase(deps, engines)
	h.disburse = usecase.NewDisburseLoanUseCase(deps, engines, h.reconcile)
	h.payments = usecase.NewPostPaymentUseCase(deps, engines, h.reconcile)
	h.penalties = usecase.NewAccruePenaltiesUseCase(deps, engines)
	h.restructure = usecase.NewRestructureLoanUseCase(deps, engines)
	h.waivers = usecase.NewWaiveLoanUseCase(deps, engines)
	h.rollover = usecase.NewRolloverLoanUseCase(deps, engines, h.reconcile)
	h.getLoan = usecase.NewGetLoanUseCase(deps)
}

// flatProduct yields 1200 over three months at 10% flat: 3 × (400 + 40).
func flatProduct() model.Product {
	return model.Product{
		ID:                  testutil.ProductID,
		Name:                "Biashara Loan",
		Currency:            money.KES,
		MinPrincipal:        testutil.D("100"),
		MaxPrincipal:        testutil.D("1000000"),
		InterestRate:        testutil.D("10"),
		Strategy:            valueobject.FlatRate,
		TermPeriods:         3,
		MinTermPeriods:      1,
		MaxTermPeriods:      24,
		TermUnit:            valueobject.TermMonths,
		PenaltyRatePerAnnum: testutil.D("36.5"),
		ApplicationFee:      testutil.D("50"),
		DefaultAfterDays:    90,
		Active:              true,
	}
}

func disburseRequest(applicationID string) dto.DisburseLoanRequest {
	return dto.DisburseLoanRequest{
		ApplicationID: applicationID,
		CustomerID:    testutil.CustomerID,
		ProductID:     testutil.ProductID,
		Principal:     testutil.D("1200"),
	}
}

func (h *harness) mustDisburse(t *testing.T, applicationID string) dto.LoanResponse {
	t.Helper()
	resp, err := h.disburse.Execute(context.Background(), disburseRequest(applicationID))
	require.NoError(t, err)
	return resp
}

func (h *harness) loan(t *testing.T, id string) model.Loan {
	t.Helper()
	loan, err := h.store.Repos().Loans.FindByID(context.Background(), id)
	require.NoError(t, err)
	return loan
}

func (h *harness) eventTypes(t *testing.T) []string {
	t.Helper()
	entries, err := h.store.Repos().Outbox.FetchUnpublished(context.Background(), 1000)
	require.NoError(t, err)
	types := make([]string, len(entries))
	for i, e := range entries {
		types[i] = e.EventType
	}
	return types
}

func approval() dto.Approval {
	return dto.Approval{ApprovedBy: testutil.Approver, Reason: "hardship review"}
}

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockLocker struct {
	lockFunc func(ctx context.Context, key string) (func(), error)
	keys     []string
}

func (m *mockLocker) Lock(ctx context.Context, key string) (func(), error) {
	m.keys = append(m.keys, key)
	if m.lockFunc != nil {
		return m.lockFunc(ctx, key)
	}
	return func() {}, nil
}

type mockProductCatalog struct {
	findByIDFunc func(ctx context.Context, id string) (model.Product, error)
}

func (m *mockProductCatalog) FindByID(ctx context.Context, id string) (model.Product, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return flatProduct(), nil
}

// customerWithPhone re-registers the fixture customer under a new phone.
func customerWithPhone(phone string) model.Customer {
	return model.Customer{ID: testutil.CustomerID, Phone: phone, Name: "Wanjiku Kamau", Active: true}
}
