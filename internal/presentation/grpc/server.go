package grpc

import (
	"fmt"
	"log/slog"
	"net"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/auth"
)

// ServerOptions configures NewServer. A nil JWT disables authentication and
// nil Creds serves plaintext.
type ServerOptions struct {
	ServiceName string
	JWT         *auth.JWTService
	Creds       credentials.TransportCredentials
	Reflection  bool
}

// approvalMethods change contractual terms or forgive debt and need a
// credit manager's sign-off.
var approvalMethods = []string{
	"ExtendTerm", "ChangeRate", "ReduceMonthlyPayment", "CompleteRestructure",
	"WaiveInterest", "WaivePenalty", "WaivePrincipal", "WaiveFull",
	"Rollover",
}

// AuthPolicy leaves health checks public and restricts approval methods
// to credit managers and admins.
func AuthPolicy() auth.Policy {
	roles := make(map[string][]string, len(approvalMethods))
	for _, m := range approvalMethods {
		roles[FullMethod(m)] = []string{auth.RoleCreditManager, auth.RoleAdmin}
	}
	return auth.Policy{
		Public: []string{
			"/grpc.health.v1.Health/Check",
			"/grpc.health.v1.Health/Watch",
		},
		Roles: roles,
	}
}

// Server wraps a gRPC server with LoanServicing and health registered.
type Server struct {
	gs     *grpclib.Server
	health *health.Server
	name   string
	logger *slog.Logger
}

// NewServer creates and configures the gRPC server.
func NewServer(handler LoanServicingServer, logger *slog.Logger, opts ServerOptions) (*Server, error) {
	telemetry, err := TelemetryInterceptor(logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry interceptor: %w", err)
	}
	interceptors := []grpclib.UnaryServerInterceptor{telemetry}
	if opts.JWT != nil {
		interceptors = append(interceptors, auth.UnaryAuthInterceptor(opts.JWT, AuthPolicy()))
	} else {
		logger.Warn("gRPC authentication disabled")
	}

	serverOpts := []grpclib.ServerOption{grpclib.ChainUnaryInterceptor(interceptors...)}
	if opts.Creds != nil {
		serverOpts = append(serverOpts, grpclib.Creds(opts.Creds))
		logger.Info("gRPC TLS enabled")
	}

	gs := grpclib.NewServer(serverOpts...)

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(gs, healthSrv)
	healthSrv.SetServingStatus(opts.ServiceName, healthpb.HealthCheckResponse_SERVING)

	if opts.Reflection {
		reflection.Register(gs)
	}

	RegisterLoanServicingServer(gs, handler)

	return &Server{gs: gs, health: healthSrv, name: opts.ServiceName, logger: logger}, nil
}

// Serve starts the gRPC server on the specified address.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.ServeListener(lis)
}

// ServeListener serves on an existing listener.
func (s *Server) ServeListener(lis net.Listener) error {
	s.logger.Info("gRPC server listening", "addr", lis.Addr().String())
	return s.gs.Serve(lis)
}

// GracefulStop marks the service as not serving and drains in-flight calls.
func (s *Server) GracefulStop() {
	s.logger.Info("gRPC server shutting down")
	s.health.SetServingStatus(s.name, healthpb.HealthCheckResponse_NOT_SERVING)
	s.gs.GracefulStop()
}
