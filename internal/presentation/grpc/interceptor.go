package grpc

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const instrumentationName = "github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/presentation/grpc"

// TelemetryInterceptor opens a span per call, records request counts and
// latency, and logs failures.
func TelemetryInterceptor(logger *slog.Logger) (grpclib.UnaryServerInterceptor, error) {
	meter := otel.Meter(instrumentationName)
	requests, err := meter.Int64Counter("loand.rpc.requests",
		metric.WithDescription("LoanServicing calls by method and status code"))
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("loand.rpc.duration",
		metric.WithDescription("LoanServicing call latency"), metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	tracer := otel.Tracer(instrumentationName)

	return func(ctx context.Context, req interface{}, info *grpclib.UnaryServerInfo, handler grpclib.UnaryHandler) (interface{}, error) {
		ctx, span := tracer.Start(ctx, info.FullMethod, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		start := time.Now()
		resp, err := handler(ctx, req)
		elapsed := time.Since(start)

		code := status.Code(err)
		attrs := metric.WithAttributes(
			attribute.String("rpc.method", info.FullMethod),
			attribute.String("rpc.grpc.status_code", code.String()),
		)
		requests.Add(ctx, 1, attrs)
		latency.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)

		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			level := slog.LevelWarn
			if code == codes.Internal || code == codes.Unknown {
				level = slog.LevelError
			}
			logger.Log(ctx, level, "rpc failed",
				"method", info.FullMethod,
				"code", code.String(),
				"duration", elapsed,
				"error", err,
			)
		}
		return resp, err
	}, nil
}
