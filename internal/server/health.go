package server

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported next to the overall "" entry.
const ServiceName = "licitaciones.Ingest"

// Pinger is satisfied by *repository.Store.
type Pinger interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

// HealthConfig tunes the database probe.
type HealthConfig struct {
	Interval time.Duration // default 15s
	Timeout  time.Duration // default 3s
}

// HealthServer is a gRPC server exposing the standard health service and
// reflection. Status follows the store: SERVING while it pings OK.
type HealthServer struct {
	grpc   *grpc.Server
	health *health.Server
	db     Pinger
	cfg    HealthConfig
	logger *slog.Logger
}

func NewHealthServer(db Pinger, cfg HealthConfig, logger *slog.Logger) *HealthServer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	// Reflection for grpcurl
	reflection.Register(gs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthServer{grpc: gs, health: hs, db: db, cfg: cfg, logger: logger}
}

// Probe pings the store once and updates the serving status.
func (s *HealthServer) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if err := s.db.HealthCheck(ctx, s.cfg.Timeout); err != nil {
		s.logger.Warn("server.health.db_failed", "error", err)
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
	return st
}

// Serve probes the store, starts serving on lis and keeps probing every
// Interval until ctx is done, then stops gracefully.
func (s *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	s.Probe(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- s.grpc.Serve(lis) }()
	s.logger.Info("gRPC health serving", "addr", lis.Addr().String())

	tick := time.NewTicker(s.cfg.Interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			s.grpc.GracefulStop()
			return nil
		case err := <-errCh:
			return err
		case <-tick.C:
			s.Probe(ctx)
		}
	}
}
