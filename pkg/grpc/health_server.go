package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/example/storefront/pkg/config"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Probe checks one backing dependency.
type Probe func(ctx context.Context) error

// HealthServer exposes the standard gRPC health service for the storefront.
// Probes run periodically; any failing probe flips the service to
// NOT_SERVING until the next successful round.
type HealthServer struct {
	config   *config.Config
	logger   *zap.Logger
	health   *health.Server
	srv      *grpc.Server
	probes   map[string]Probe
	interval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
}

func NewHealthServer(cfg *config.Config, logger *zap.Logger, probes map[string]Probe) *HealthServer {
	hs := health.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &HealthServer{
		config:   cfg,
		logger:   logger,
		health:   hs,
		srv:      srv,
		probes:   probes,
		interval: 15 * time.Second,
		stop:     make(chan struct{}),
	}
}

// Check runs every probe once and publishes the result.
func (s *HealthServer) Check(ctx context.Context) error {
	names := make([]string, 0, len(s.probes))
	for name := range s.probes {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := s.probes[name](probeCtx)
		cancel()
		if err != nil {
			s.logger.Warn("Health probe failed", zap.String("probe", name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	status := healthpb.HealthCheckResponse_SERVING
	if len(errs) > 0 {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(s.config.Server.Name, status)
	return errors.Join(errs...)
}

func (s *HealthServer) Start() error {
	addr := s.config.GRPC.Addr()
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.logger.Info("gRPC health server started", zap.String("address", addr))
	return s.Serve(lis)
}

func (s *HealthServer) Serve(lis net.Listener) error {
	_ = s.Check(context.Background())
	go s.probeLoop()
	return s.srv.Serve(lis)
}

func (s *HealthServer) probeLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = s.Check(context.Background())
		case <-s.stop:
			return
		}
	}
}

// Stop marks the service NOT_SERVING and drains in-flight RPCs.
func (s *HealthServer) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.health.Shutdown()
		s.srv.GracefulStop()
	})
}
