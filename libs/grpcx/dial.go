package grpcx

import (
	"context"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Dial returns a lazily connecting client with tracing and request id
// propagation. Plaintext is the default; pass credentials in extra to override.
func Dial(addr string, extra ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithChainUnaryInterceptor(UnaryClientRequestIDInterceptor()),
	}
	return grpc.NewClient(addr, append(opts, extra...)...)
}

// CheckHealth asks the standard health service for the status of service ("" = whole server).
func CheckHealth(ctx context.Context, conn *grpc.ClientConn, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// WaitServing polls CheckHealth until service is SERVING or ctx ends. It returns
// the last status seen and, on timeout, the last check error if there was one.
func WaitServing(ctx context.Context, conn *grpc.ClientConn, service string, every time.Duration) (healthpb.HealthCheckResponse_ServingStatus, error) {
	if every <= 0 {
		every = 500 * time.Millisecond
	}
	for {
		st, err := CheckHealth(ctx, conn, service)
		if err == nil && st == healthpb.HealthCheckResponse_SERVING {
			return st, nil
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return st, err
			}
			return st, ctx.Err()
		case <-time.After(every):
		}
	}
}
