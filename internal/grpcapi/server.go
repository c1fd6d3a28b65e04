package grpcapi

import (
	"context"
	"log"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

type Server struct {
	grpcServer *grpc.Server
	logger     *log.Logger
	addr       string
}

func NewServer(addr string, svc NetworkServiceServer, logger *log.Logger) *Server {
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))
	gs.RegisterService(&ServiceDesc, svc)
	return &Server{grpcServer: gs, logger: logger, addr: addr}
}

// Serve blocks serving on lis.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Shutdown stops gracefully, falling back to a hard stop when ctx expires.
func (s *Server) Shutdown(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpcServer.Stop()
	}
}

func loggingInterceptor(logger *log.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now().UTC()
		resp, err := handler(ctx, req)
		logger.Printf("grpc %s code=%s dur=%s", info.FullMethod, status.Code(err), time.Since(start))
		return resp, err
	}
}
