package server

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name reported next to the overall ("") status.
const ServiceName = "chatsphere"

// HealthServer exposes grpc.health.v1 for orchestrators and load balancers.
// As a worker it keeps the reported status in step with check.
type HealthServer struct {
	log      *slog.Logger
	server   *grpc.Server
	health   *health.Server
	check    func() bool
	interval time.Duration
}

func NewHealthServer(log *slog.Logger, check func() bool, interval time.Duration) *HealthServer {
	s := &HealthServer{
		log:      log,
		health:   health.NewServer(),
		check:    check,
		interval: interval,
	}
	s.server = grpc.NewServer(grpc.UnaryInterceptor(s.logCalls))
	healthpb.RegisterHealthServer(s.server, s.health)
	s.Refresh()
	return s
}

// Serve blocks until Stop.
func (s *HealthServer) Serve(lis net.Listener) error {
	s.log.Info("Starting gRPC health server", "address", lis.Addr().String())
	if err := s.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}

func (s *HealthServer) Refresh() {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if s.check() {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

func (s *HealthServer) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Refresh()
		}
	}
}

// Stop reports NOT_SERVING to watchers, then drains in-flight calls.
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}

func (s *HealthServer) logCalls(ctx context.Context, req any,
	info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	s.log.Debug("gRPC call", "method", info.FullMethod, "error", err)
	return resp, err
}
