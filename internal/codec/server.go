package codec

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/adaptive-tutor/internal/estimator"
	"github.com/danielpatrickdp/adaptive-tutor/internal/features"
	"github.com/danielpatrickdp/adaptive-tutor/internal/logging"
)

// #region server
// Server exposes a local estimator over gRPC. The estimator should be a
// Guarded handle when requests can arrive concurrently.
type Server struct {
	est estimator.ValueEstimator
	log *logging.Logger
}

// NewServer wraps est. A nil logger discards output.
func NewServer(est estimator.ValueEstimator, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}
	return &Server{est: est, log: log}
}

func (s *Server) Predict(ctx context.Context, in *structpb.ListValue) (*structpb.ListValue, error) {
	v, err := vectorFrom(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	scores, err := s.est.Predict(ctx, v)
	if err != nil {
		s.log.Warn("predict failed", "error", err)
		return nil, statusFor(err)
	}
	return numberList(scores), nil
}

func (s *Server) Update(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	fields := in.GetFields()
	v, err := vectorFrom(fields["features"].GetListValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	target, err := numbers(fields["target"].GetListValue())
	if err == nil && len(target) == 0 {
		err = errors.New("empty")
	}
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "target: %v", err)
	}
	if err := s.est.Update(ctx, v, target); err != nil {
		s.log.Warn("update failed", "error", err)
		return nil, statusFor(err)
	}
	s.log.Debug("update applied", "target", target)
	return &emptypb.Empty{}, nil
}

// #endregion server

// #region serve
// Serve runs the estimator service on lis until ctx is cancelled.
func Serve(ctx context.Context, lis net.Listener, est estimator.ValueEstimator, log *logging.Logger) error {
	srv := grpc.NewServer()
	RegisterEstimatorServiceServer(srv, NewServer(est, log))

	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()

	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// #endregion serve

// #region helpers
func vectorFrom(l *structpb.ListValue) (features.Vector, error) {
	xs, err := numbers(l)
	if err != nil {
		return features.Vector{}, fmt.Errorf("features: %w", err)
	}
	return features.FromSlice(xs)
}

func statusFor(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, estimator.ErrUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// #endregion helpers
