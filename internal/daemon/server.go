package daemon

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/matheus3301/chatlog/internal/instance"
	"github.com/matheus3301/chatlog/internal/status"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health-checked service reported on the control socket.
const ServiceName = "chatlog"

// Server manages the gRPC control server lifecycle for an instance daemon.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	listener   net.Listener
	socketPath string
	logger     *zap.Logger
}

// NewServer creates a gRPC server bound to the instance's Unix domain socket.
// Its health status follows the state machine: SERVING only while LISTENING.
func NewServer(p Params, logger *zap.Logger, machine *status.Machine) (*Server, error) {
	socketPath := p.SocketPath
	if socketPath == "" {
		socketPath = instance.SocketPath(p.Instance)
	}

	// Clean stale socket if it exists.
	if _, err := os.Stat(socketPath); err == nil {
		_ = os.Remove(socketPath)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen unix socket: %w", err)
	}

	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}

	hs := health.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	if machine != nil {
		machine.Observe(func(_, to status.State) {
			st := healthpb.HealthCheckResponse_NOT_SERVING
			if to == status.Listening {
				st = healthpb.HealthCheckResponse_SERVING
			}
			hs.SetServingStatus(ServiceName, st)
		})
	}

	return &Server{
		grpcServer: srv,
		health:     hs,
		listener:   listener,
		socketPath: socketPath,
		logger:     logger,
	}, nil
}

// Start begins serving gRPC requests. Blocks until stopped.
func (s *Server) Start() error {
	s.logger.Info("gRPC server starting", zap.String("socket", s.socketPath))
	return s.grpcServer.Serve(s.listener)
}

// Stop performs a graceful shutdown and removes the socket file.
func (s *Server) Stop(_ context.Context) {
	s.logger.Info("gRPC server stopping")
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
	_ = os.Remove(s.socketPath)
}
