package health

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Names reported by the gRPC health service in addition to the overall "" entry.
const (
	ServiceClassifier = "classifier"
	ServiceAnnotator  = "annotator"
)

type Service struct {
	server *grpc.Server
	health *health.Server
	lis    net.Listener
}

func NewService() *Service {
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	for _, name := range []string{"", ServiceClassifier, ServiceAnnotator} {
		hs.SetServingStatus(name, healthpb.HealthCheckResponse_SERVING)
	}

	return &Service{server: srv, health: hs}
}

// Listen binds the port; port 0 picks a free one.
func (s *Service) Listen(port int) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC on port %d: %w", port, err)
	}
	s.lis = lis
	return nil
}

func (s *Service) Addr() string {
	if s.lis == nil {
		return ""
	}
	return s.lis.Addr().String()
}

// Serve blocks until Shutdown is called.
func (s *Service) Serve() error {
	if s.lis == nil {
		return fmt.Errorf("gRPC health server is not listening")
	}
	log.Info().Str("addr", s.Addr()).Msg("gRPC health server started")
	if err := s.server.Serve(s.lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}

func (s *Service) SetServing(name string, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(name, status)
}

func (s *Service) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return ctx.Err()
	}
}

// Probe asks the health service at addr whether name is serving.
func Probe(ctx context.Context, addr, name string) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to connect to health service: %w", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: name})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("service %q is %s", name, resp.GetStatus())
	}
	return nil
}
