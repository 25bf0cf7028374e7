package grpc

import (
	"context"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/application/dto"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/application/usecase"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/auth"
)

// UseCases are the application services behind LoanServicing.
type UseCases struct {
	Disburse    *usecase.DisburseLoanUseCase
	GetLoan     *usecase.GetLoanUseCase
	Payments    *usecase.PostPaymentUseCase
	Penalties   *usecase.AccruePenaltiesUseCase
	Restructure *usecase.RestructureLoanUseCase
	Waivers     *usecase.WaiveLoanUseCase
	Rollover    *usecase.RolloverLoanUseCase
	Reconcile   *usecase.ReconcileSuspenseUseCase
}

// LoanHandler implements LoanServicingServer. Administrative changes are
// attributed to the authenticated caller when a token is present.
type LoanHandler struct {
	uc UseCases
}

func NewLoanHandler(uc UseCases) *LoanHandler {
	return &LoanHandler{uc: uc}
}

var _ LoanServicingServer = (*LoanHandler)(nil)

func (h *LoanHandler) DisburseLoan(ctx context.Context, req *dto.DisburseLoanRequest) (*dto.LoanResponse, error) {
	return respond(h.uc.Disburse.Execute(ctx, *req))
}

func (h *LoanHandler) BatchDisburse(ctx context.Context, req *dto.BatchDisburseRequest) (*dto.BatchResponse, error) {
	return respond(h.uc.Disburse.ExecuteBatch(ctx, *req))
}

func (h *LoanHandler) GetLoan(ctx context.Context, req *dto.GetLoanRequest) (*dto.LoanResponse, error) {
	return respond(h.uc.GetLoan.Execute(ctx, *req))
}

func (h *LoanHandler) PostPayment(ctx context.Context, req *dto.PostPaymentRequest) (*dto.PaymentResponse, error) {
	return respond(h.uc.Payments.Execute(ctx, *req))
}

func (h *LoanHandler) BatchPostPayments(ctx context.Context, req *dto.BatchPostPaymentsRequest) (*dto.BatchResponse, error) {
	return respond(h.uc.Payments.ExecuteBatch(ctx, *req))
}

func (h *LoanHandler) AccruePenalties(ctx context.Context, req *dto.AccruePenaltiesRequest) (*dto.PenaltyRunResponse, error) {
	return respond(h.uc.Penalties.Execute(ctx, *req))
}

func (h *LoanHandler) ExtendTerm(ctx context.Context, req *dto.ExtendTermRequest) (*dto.RestructureResponse, error) {
	r := *req
	r.ApprovedBy = approver(ctx, r.ApprovedBy)
	return respond(h.uc.Restructure.ExtendTerm(ctx, r))
}

func (h *LoanHandler) ChangeRate(ctx context.Context, req *dto.ChangeRateRequest) (*dto.RestructureResponse, error) {
	r := *req
	r.ApprovedBy = approver(ctx, r.ApprovedBy)
	return respond(h.uc.Restructure.ChangeRate(ctx, r))
}

func (h *LoanHandler) ReduceMonthlyPayment(ctx context.Context, req *dto.ReduceMonthlyPaymentRequest) (*dto.RestructureResponse, error) {
	r := *req
	r.ApprovedBy = approver(ctx, r.ApprovedBy)
	return respond(h.uc.Restructure.ReduceMonthlyPayment(ctx, r))
}

func (h *LoanHandler) CompleteRestructure(ctx context.Context, req *dto.CompleteRestructureRequest) (*dto.RestructureResponse, error) {
	r := *req
	r.ApprovedBy = approver(ctx, r.ApprovedBy)
	return respond(h.uc.Restructure.CompleteRestructure(ctx, r))
}

func (h *LoanHandler) WaiveInterest(ctx context.Context, req *dto.WaiveRequest) (*dto.WaiverResponse, error) {
	return respond(h.uc.Waivers.WaiveInterest(ctx, approvedWaiver(ctx, req)))
}

func (h *LoanHandler) WaivePenalty(ctx context.Context, req *dto.WaiveRequest) (*dto.WaiverResponse, error) {
	return respond(h.uc.Waivers.WaivePenalty(ctx, approvedWaiver(ctx, req)))
}

func (h *LoanHandler) WaivePrincipal(ctx context.Context, req *dto.WaiveRequest) (*dto.WaiverResponse, error) {
	return respond(h.uc.Waivers.WaivePrincipal(ctx, approvedWaiver(ctx, req)))
}

func (h *LoanHandler) WaiveFull(ctx context.Context, req *dto.WaiveRequest) (*dto.WaiverResponse, error) {
	return respond(h.uc.Waivers.WaiveFull(ctx, approvedWaiver(ctx, req)))
}

func (h *LoanHandler) Rollover(ctx context.Context, req *dto.RolloverRequest) (*dto.RolloverResponse, error) {
	r := *req
	r.ApprovedBy = approver(ctx, r.ApprovedBy)
	return respond(h.uc.Rollover.Execute(ctx, r))
}

func (h *LoanHandler) ReconcileSuspense(ctx context.Context, req *dto.ReconcileSuspenseRequest) (*dto.ReconcileResponse, error) {
	return respond(h.uc.Reconcile.Execute(ctx, *req))
}

func approvedWaiver(ctx context.Context, req *dto.WaiveRequest) dto.WaiveRequest {
	r := *req
	r.ApprovedBy = approver(ctx, r.ApprovedBy)
	return r
}

// approver prefers the token subject over whatever the body claims.
func approver(ctx context.Context, given string) string {
	if claims, ok := auth.ClaimsFromContext(ctx); ok && claims.Subject != "" {
		return claims.Subject
	}
	return given
}

func respond[T any](resp T, err error) (*T, error) {
	if err != nil {
		return nil, toStatus(err)
	}
	return &resp, nil
}
