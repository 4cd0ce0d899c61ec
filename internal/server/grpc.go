package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the gRPC health service name reported next to "".
const ServiceName = "paperia.Documents"

// HealthServer is a gRPC server carrying only the standard health service
// and reflection, whose status follows database reachability.
type HealthServer struct {
	GRPC   *grpc.Server
	health *health.Server
	ping   Pinger
	logger *slog.Logger
}

func NewHealthServer(ping Pinger, logger *slog.Logger) *HealthServer {
	if logger == nil {
		logger = slog.Default()
	}
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)
	return &HealthServer{GRPC: gs, health: hs, ping: ping, logger: logger}
}

// Check pings the database once and updates the reported status.
func (h *HealthServer) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if h.ping != nil {
		if err := h.ping(ctx); err != nil {
			h.logger.Warn("health.database.unreachable", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
	return status
}

// Watch re-checks every interval until ctx ends, then marks the server as
// not serving.
func (h *HealthServer) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	h.Check(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			h.health.Shutdown()
			return
		case <-t.C:
			h.Check(ctx)
		}
	}
}
