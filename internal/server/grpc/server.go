// Package grpc serves the inference hooks over gRPC.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/ekisa-team/visionhook/internal/handler"
	"github.com/ekisa-team/visionhook/internal/imageproc"
	"github.com/ekisa-team/visionhook/internal/service"
)

// maxMessageBytes leaves room for framing around a 6 MiB image.
const maxMessageBytes = 7 << 20

// Server is the gRPC front end of an inference service.
type Server struct {
	srv       *grpc.Server
	health    *health.Server
	inference *service.Inference
}

var _ InferenceServer = (*Server)(nil)

// NewServer creates a server with the inference and health services registered.
// Health reports NOT_SERVING until SetServing is called.
func NewServer(inference *service.Inference) *Server {
	s := &Server{
		srv: grpc.NewServer(
			grpc.MaxRecvMsgSize(maxMessageBytes),
			grpc.ChainUnaryInterceptor(logUnary),
		),
		health:    health.NewServer(),
		inference: inference,
	}

	RegisterInferenceServer(s.srv, s)
	healthpb.RegisterHealthServer(s.srv, s.health)
	s.SetServing(false)

	return s
}

// SetServing updates the health status of the server and the inference service.
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}

	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Invoke implements InferenceServer.
func (s *Server) Invoke(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.ListValue, error) {
	md, _ := metadata.FromIncomingContext(ctx)

	res, err := s.inference.Invoke(ctx, req.GetValue(), first(md, MetadataContentType), first(md, MetadataAccept))
	if err != nil {
		return nil, toStatus(err)
	}

	rows, ok := res.Payload.([]any)
	if !ok {
		return nil, status.Errorf(codes.Internal, "prediction is %T, not a list", res.Payload)
	}

	out, err := structpb.NewList(rows)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to convert prediction: %v", err)
	}

	return out, nil
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	slog.Info("gRPC server listening", "addr", ln.Addr().String())

	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}

	return nil
}

// ListenAndServe listens on addr and serves until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return s.Serve(ln)
}

// Shutdown stops the server gracefully, or forcibly once ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.srv.Stop()
		return ctx.Err()
	}
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, handler.ErrUnsupportedMediaType), errors.Is(err, imageproc.ErrDecode):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrNotReady):
		return status.Error(codes.Unavailable, err.Error())
	}

	return status.Error(codes.Internal, err.Error())
}

func first(md metadata.MD, key string) string {
	if v := md.Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}

func logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := next(ctx, req)

	slog.Debug("RPC handled", "method", info.FullMethod, "code", status.Code(err).String(), "elapsed", time.Since(start))
	return resp, err
}
