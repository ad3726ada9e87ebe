package grpcserver

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"ticketCountManagement/internal/auth"
	"ticketCountManagement/internal/catalog"
	"ticketCountManagement/repository"
)

const healthCheckMethod = "/grpc.health.v1.Health/Check"

// NewServer builds a gRPC server carrying the report and health services.
// Every call except the health check needs a Bearer JWT signed with secret.
func NewServer(store *repository.Store, cat *catalog.Catalog, secret string) *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		logUnary,
		auth.NewUnaryAuthInterceptor(secret, healthCheckMethod),
	))
	RegisterReportServiceServer(srv, &ReportServer{Store: store, Catalog: cat})

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv
}

// StartGRPC listens on addr and serves in the background. The returned
// function stops the server, forcing it once ctx expires.
func StartGRPC(addr string, store *repository.Store, cat *catalog.Catalog, secret string) (func(context.Context) error, error) {
	if addr == "" {
		addr = ":50051"
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	// Plaintext; terminate TLS in front of the process.
	srv := NewServer(store, cat, secret)
	go func() {
		if err := srv.Serve(lis); err != nil {
			slog.Error("grpc serve", "error", err)
		}
	}()
	slog.Info("grpc listening", "addr", lis.Addr().String())

	return func(ctx context.Context) error {
		done := make(chan struct{})
		go func() { srv.GracefulStop(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			srv.Stop()
			return ctx.Err()
		}
	}, nil
}

func logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	slog.Info("grpc call",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, err
}
