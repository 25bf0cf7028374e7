package grpc_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/application/dto"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/application/usecase"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/model"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/infrastructure/lock"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/infrastructure/persistence/memory"
	loangrpc "github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/presentation/grpc"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/auth"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/money"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/testutil"
)

type fixture struct {
	store *memory.Store
	conn  *grpclib.ClientConn
	jwt   *auth.JWTService
	token string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := memory.NewStore()
	store.PutProduct(model.Product{
		ID:                  testutil.ProductID,
		Name:                "Biashara Loan",
		Currency:            money.KES,
		MinPrincipal:        testutil.D("100"),
		MaxPrincipal:        testutil.D("1000000"),
		InterestRate:        testutil.D("10"),
		Strategy:            valueobject.FlatRate,
		TermPeriods:         3,
		MaxTermPeriods:      24,
		TermUnit:            valueobject.TermMonths,
		PenaltyRatePerAnnum: testutil.D("36.5"),
		ApplicationFee:      testutil.D("50"),
		Active:              true,
	})
	store.PutCustomer(model.Customer{ID: testutil.CustomerID, Phone: testutil.CustomerTel, Active: true})

	deps := usecase.Deps{
		UoW:       store,
		Locker:    lock.NewLocal(),
		Products:  store,
		Customers: store,
		Clock:     func() time.Time { return testutil.DisbursedAt },
		Logger:    logger,
	}
	engines := usecase.NewEngines(24)
	reconcile := usecase.NewReconcileSuspenseUseCase(deps, engines)
	handler := loangrpc.NewLoanHandler(loangrpc.UseCases{
		Disburse:    usecase.NewDisburseLoanUseCase(deps, engines, reconcile),
		GetLoan:     usecase.NewGetLoanUseCase(deps),
		Payments:    usecase.NewPostPaymentUseCase(deps, engines, reconcile),
		Penalties:   usecase.NewAccruePenaltiesUseCase(deps, engines),
		Restructure: usecase.NewRestructureLoanUseCase(deps, engines),
		Waivers:     usecase.NewWaiveLoanUseCase(deps, engines),
		Rollover:    usecase.NewRolloverLoanUseCase(deps, engines, reconcile),
		Reconcile:   reconcile,
	})

	jwtSvc, err := auth.NewJWTService(auth.JWTConfig{Secret: "test-secret", Issuer: "sacco-gateway", Expiration: time.Hour})
	require.NoError(t, err)
	token, err := jwtSvc.GenerateToken("credit-manager-7", "NAIROBI-01", []string{auth.RoleCreditManager})
	require.NoError(t, err)

	srv, err := loangrpc.NewServer(handler, logger, loangrpc.ServerOptions{ServiceName: "loand", JWT: jwtSvc})
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.ServeListener(lis) }()
	t.Cleanup(srv.GracefulStop)

	conn, err := grpclib.NewClient("passthrough:///bufnet",
		grpclib.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpclib.WithTransportCredentials(insecure.NewCredentials()),
		grpclib.WithDefaultCallOptions(grpclib.CallContentSubtype("json")),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &fixture{store: store, conn: conn, jwt: jwtSvc, token: token}
}

func (f *fixture) call(ctx context.Context, method string, req, resp any) error {
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+f.token)
	return f.conn.Invoke(ctx, loangrpc.FullMethod(method), req, resp)
}

func TestLoanServicing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var loan dto.LoanResponse
	require.NoError(t, f.call(ctx, "DisburseLoan", dto.DisburseLoanRequest{
		ApplicationID: "APP-GRPC-1",
		CustomerID:    testutil.CustomerID,
		ProductID:     testutil.ProductID,
		Principal:     testutil.D("1200"),
	}, &loan))
	testutil.AssertDecimal(t, "1320", loan.TotalOutstanding)
	assert.Len(t, loan.Installments, 3)

	t.Run("payment by phone", func(t *testing.T) {
		var resp dto.PaymentResponse
		require.NoError(t, f.call(ctx, "PostPayment", dto.PostPaymentRequest{
			HolderRef: testutil.CustomerTel,
			Amount:    testutil.D("100"),
			Reference: "MPESA-GRPC-1",
		}, &resp))
		assert.Equal(t, loan.ID, resp.LoanID)
		testutil.AssertDecimal(t, "1220", resp.Outstanding)
	})

	t.Run("waiver is attributed to the token subject", func(t *testing.T) {
		var resp dto.WaiverResponse
		require.NoError(t, f.call(ctx, "WaiveInterest", dto.WaiveRequest{
			LoanID:   loan.ID,
			Amount:   testutil.D("40"),
			Approval: dto.Approval{ApprovedBy: "someone-else", Reason: "hardship review"},
		}, &resp))
		assert.Equal(t, string(valueobject.WaiverInterest), resp.Type)

		records, err := f.store.Repos().Waivers.FindByLoanID(ctx, loan.ID)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "credit-manager-7", records[0].ApprovedBy)
	})

	t.Run("error kinds map to codes", func(t *testing.T) {
		var resp dto.LoanResponse
		err := f.call(ctx, "GetLoan", dto.GetLoanRequest{LoanID: "missing"}, &resp)
		assert.Equal(t, codes.NotFound, status.Code(err))

		err = f.call(ctx, "GetLoan", dto.GetLoanRequest{}, &resp)
		assert.Equal(t, codes.InvalidArgument, status.Code(err))

		err = f.call(ctx, "DisburseLoan", dto.DisburseLoanRequest{
			ApplicationID: "APP-GRPC-1",
			CustomerID:    testutil.CustomerID,
			ProductID:     testutil.ProductID,
			Principal:     testutil.D("1200"),
		}, &resp)
		assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	})

	t.Run("approvals need a credit manager", func(t *testing.T) {
		teller, err := f.jwt.GenerateToken("teller-2", "NAIROBI-01", []string{auth.RoleTeller})
		require.NoError(t, err)
		tellerCtx := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+teller)

		var resp dto.WaiverResponse
		err = f.conn.Invoke(tellerCtx, loangrpc.FullMethod("WaivePenalty"), dto.WaiveRequest{
			LoanID:   loan.ID,
			Amount:   testutil.D("1"),
			Approval: dto.Approval{ApprovedBy: "teller-2", Reason: "goodwill"},
		}, &resp)
		assert.Equal(t, codes.PermissionDenied, status.Code(err))

		var got dto.LoanResponse
		require.NoError(t, f.conn.Invoke(tellerCtx, loangrpc.FullMethod("GetLoan"), dto.GetLoanRequest{LoanID: loan.ID}, &got))
		assert.Equal(t, loan.ID, got.ID)
	})

	t.Run("calls without a token are rejected", func(t *testing.T) {
		var resp dto.LoanResponse
		err := f.conn.Invoke(ctx, loangrpc.FullMethod("GetLoan"), dto.GetLoanRequest{LoanID: loan.ID}, &resp)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})
}
