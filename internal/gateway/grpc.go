// ABOUTME: gRPC server construction for the standard health service
// ABOUTME: Maps backend availability and feature flags onto per-service serving status

package gateway

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"

	"github.com/2389/mate-gateway/internal/config"
)

// Health service names reported by the gRPC health server.
const (
	HealthServicePresenter = "mate.presenter"
	HealthServiceBackend   = "mate.backend"
)

// newGRPCServer creates a gRPC server with keepalive enforcement and the health service registered.
func newGRPCServer(hs *health.Server) *grpc.Server {
	srv := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    15 * time.Second,
			Timeout: 5 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	)
	healthpb.RegisterHealthServer(srv, hs)
	return srv
}

// shutdownGRPCServer gracefully stops the gRPC server or force-stops on context cancel.
func (g *Gateway) shutdownGRPCServer(ctx context.Context) {
	stopped := make(chan struct{})
	go func() {
		g.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		g.grpcServer.Stop()
	}
}

func servingStatus(ok bool) healthpb.HealthCheckResponse_ServingStatus {
	if ok {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

// updateHealth refreshes the serving status of every reported service.
// The gateway itself always serves: a missing backend only means fallback answers.
func (g *Gateway) updateHealth() {
	g.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	g.health.SetServingStatus(HealthServicePresenter,
		servingStatus(g.config.FeatureFlag(config.FeatureDigitalHuman, true)))
	g.health.SetServingStatus(HealthServiceBackend, servingStatus(g.ai.Online()))
}
