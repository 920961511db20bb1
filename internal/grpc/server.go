package grpc

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"path"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/LeJamon/goDCA/internal/core/tx"
	"github.com/LeJamon/goDCA/internal/logging"
	"github.com/LeJamon/goDCA/internal/metrics"
)

// Server serves the query service over gRPC.
type Server struct {
	mu sync.RWMutex

	// grpcServer is the underlying gRPC server
	grpcServer *grpc.Server

	engine  *tx.Engine
	config  *ServerConfig
	logger  *slog.Logger
	metrics *metrics.Metrics

	listener net.Listener
	running  bool
}

// ServerOption is a function that configures a Server.
type ServerOption func(*Server)

func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a gRPC server answering queries from engine.
func NewServer(cfg *ServerConfig, engine *tx.Engine, opts ...ServerOption) (*Server, error) {
	if cfg == nil {
		cfg = DefaultServerConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if engine == nil {
		return nil, errors.New("grpc: engine is required")
	}

	s := &Server{
		engine: engine,
		config: cfg,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.grpcServer = grpc.NewServer(
		grpc.MaxRecvMsgSize(cfg.MaxRecvMsgSize),
		grpc.MaxSendMsgSize(cfg.MaxSendMsgSize),
		grpc.UnaryInterceptor(s.unaryInterceptor()),
	)
	s.grpcServer.RegisterService(&QueryServiceDesc, s)

	return s, nil
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve accepts connections on lis until ctx is done, then stops
// gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		_ = lis.Close()
		return errors.New("server is already running")
	}
	s.listener = lis
	s.running = true
	s.mu.Unlock()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-done:
		}
	}()

	s.logger.Info("grpc server listening", "address", lis.Addr().String())
	return s.grpcServer.Serve(lis)
}

// Stop gracefully stops the gRPC server.
// It stops accepting new connections and waits for existing connections to complete.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.grpcServer.GracefulStop()
	s.running = false
}

// IsRunning returns true if the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Address returns the address the server is listening on.
// Returns empty string if the server is not running.
func (s *Server) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// unaryInterceptor logs and counts each call.
func (s *Server) unaryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		method := path.Base(info.FullMethod)
		s.metrics.ObserveRPC("grpc", method, err)
		if err != nil {
			s.logger.Debug("grpc call failed", "method", method, "code", status.Code(err), "error", err)
		} else {
			s.logger.Debug("grpc call", "method", method, "elapsed", time.Since(start))
		}
		return resp, err
	}
}
