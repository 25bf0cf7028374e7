package grpc

// service.go describes sacco.lending.v1.LoanServicing by hand. Request and
// response messages are the application DTOs carried by the JSON codec.

import (
	"context"

	grpclib "google.golang.org/grpc"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/application/dto"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "sacco.lending.v1.LoanServicing"

// LoanServicingServer is the server API for LoanServicing.
type LoanServicingServer interface {
	DisburseLoan(context.Context, *dto.DisburseLoanRequest) (*dto.LoanResponse, error)
	BatchDisburse(context.Context, *dto.BatchDisburseRequest) (*dto.BatchResponse, error)
	GetLoan(context.Context, *dto.GetLoanRequest) (*dto.LoanResponse, error)
	PostPayment(context.Context, *dto.PostPaymentRequest) (*dto.PaymentResponse, error)
	BatchPostPayments(context.Context, *dto.BatchPostPaymentsRequest) (*dto.BatchResponse, error)
	AccruePenalties(context.Context, *dto.AccruePenaltiesRequest) (*dto.PenaltyRunResponse, error)
	ExtendTerm(context.Context, *dto.ExtendTermRequest) (*dto.RestructureResponse, error)
	ChangeRate(context.Context, *dto.ChangeRateRequest) (*dto.RestructureResponse, error)
	ReduceMonthlyPayment(context.Context, *dto.ReduceMonthlyPaymentRequest) (*dto.RestructureResponse, error)
	CompleteRestructure(context.Context, *dto.CompleteRestructureRequest) (*dto.RestructureResponse, error)
	WaiveInterest(context.Context, *dto.WaiveRequest) (*dto.WaiverResponse, error)
	WaivePenalty(context.Context, *dto.WaiveRequest) (*dto.WaiverResponse, error)
	WaivePrincipal(context.Context, *dto.WaiveRequest) (*dto.WaiverResponse, error)
	WaiveFull(context.Context, *dto.WaiveRequest) (*dto.WaiverResponse, error)
	Rollover(context.Context, *dto.RolloverRequest) (*dto.RolloverResponse, error)
	ReconcileSuspense(context.Context, *dto.ReconcileSuspenseRequest) (*dto.ReconcileResponse, error)
}

// RegisterLoanServicingServer registers srv with s.
func RegisterLoanServicingServer(s grpclib.ServiceRegistrar, srv LoanServicingServer) {
	s.RegisterService(&loanServicingDesc, srv)
}

var loanServicingDesc = grpclib.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LoanServicingServer)(nil),
	Methods: []grpclib.MethodDesc{
		unary("DisburseLoan", LoanServicingServer.DisburseLoan),
		unary("BatchDisburse", LoanServicingServer.BatchDisburse),
		unary("GetLoan", LoanServicingServer.GetLoan),
		unary("PostPayment", LoanServicingServer.PostPayment),
		unary("BatchPostPayments", LoanServicingServer.BatchPostPayments),
		unary("AccruePenalties", LoanServicingServer.AccruePenalties),
		unary("ExtendTerm", LoanServicingServer.ExtendTerm),
		unary("ChangeRate", LoanServicingServer.ChangeRate),
		unary("ReduceMonthlyPayment", LoanServicingServer.ReduceMonthlyPayment),
		unary("CompleteRestructure", LoanServicingServer.CompleteRestructure),
		unary("WaiveInterest", LoanServicingServer.WaiveInterest),
		unary("WaivePenalty", LoanServicingServer.WaivePenalty),
		unary("WaivePrincipal", LoanServicingServer.WaivePrincipal),
		unary("WaiveFull", LoanServicingServer.WaiveFull),
		unary("Rollover", LoanServicingServer.Rollover),
		unary("ReconcileSuspense", LoanServicingServer.ReconcileSuspense),
	},
	Streams:  []grpclib.StreamDesc{},
	Metadata: "sacco/lending/v1/loan_servicing.proto",
}

// FullMethod returns the gRPC path of a LoanServicing method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unary[Req, Resp any](
	name string,
	call func(LoanServicingServer, context.Context, *Req) (*Resp, error),
) grpclib.MethodDesc {
	fullMethod := FullMethod(name)
	return grpclib.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(LoanServicingServer), ctx, in)
			}
			info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(LoanServicingServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
