package codec

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/adaptive-tutor/internal/estimator"
	"github.com/danielpatrickdp/adaptive-tutor/internal/features"
	"github.com/danielpatrickdp/adaptive-tutor/internal/logging"
)

// #region mock
type mockService struct {
	predictResp *structpb.ListValue
	predictErr  error
	updateErr   error

	lastUpdate *structpb.Struct
}

func (m *mockService) Predict(_ context.Context, _ *structpb.ListValue, _ ...grpc.CallOption) (*structpb.ListValue, error) {
	return m.predictResp, m.predictErr
}

func (m *mockService) Update(_ context.Context, in *structpb.Struct, _ ...grpc.CallOption) (*emptypb.Empty, error) {
	m.lastUpdate = in
	return &emptypb.Empty{}, m.updateErr
}

type failingEstimator struct{ err error }

func (f failingEstimator) Predict(context.Context, features.Vector) ([]float64, error) {
	return nil, f.err
}

func (f failingEstimator) Update(context.Context, features.Vector, []float64) error {
	return f.err
}

// #endregion mock

// #region helpers
var vec = features.Vector{2, 1, 3, 2, 1.5, 1.1}

func newMLP(t *testing.T) *estimator.MLP {
	t.Helper()
	cfg := estimator.DefaultMLPConfig()
	cfg.Hidden = 8
	m, err := estimator.NewMLP(cfg, rand.New(rand.NewPCG(7, 7)))
	if err != nil {
		t.Fatalf("NewMLP: %v", err)
	}
	return m
}

func dialBufconn(t *testing.T, est estimator.ValueEstimator) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterEstimatorServiceServer(srv, NewServer(est, logging.Nop()))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufconn: %v", err)
	}
	c := &Client{conn: conn, client: NewEstimatorServiceClient(conn)}
	t.Cleanup(func() { c.Close() })
	return c
}

// #endregion helpers

// #region constructor-tests
func TestNewClientLazyDial(t *testing.T) {
	client, err := NewClient("localhost:0")
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}
	defer client.Close()
}

func TestNewClientWithService(t *testing.T) {
	c := NewClientWithService(&mockService{})
	if c.client == nil {
		t.Fatal("expected non-nil internal client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close without conn: %v", err)
	}
}

// #endregion constructor-tests

// #region client-tests
func TestPredict_Success(t *testing.T) {
	c := NewClientWithService(&mockService{predictResp: numberList([]float64{0, 1, 2, 3, 4})})
	scores, err := c.Predict(context.Background(), vec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scores) != 5 || scores[4] != 4 {
		t.Fatalf("unexpected scores %v", scores)
	}
}

func TestPredict_NonNumeric(t *testing.T) {
	resp := &structpb.ListValue{Values: []*structpb.Value{structpb.NewStringValue("x")}}
	c := NewClientWithService(&mockService{predictResp: resp})
	if _, err := c.Predict(context.Background(), vec); err == nil {
		t.Fatal("expected error for non-numeric element")
	}
}

func TestPredict_UnavailableMapped(t *testing.T) {
	c := NewClientWithService(&mockService{predictErr: status.Error(codes.Unavailable, "down")})
	_, err := c.Predict(context.Background(), vec)
	if !errors.Is(err, estimator.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestPredict_OtherCodeNotMapped(t *testing.T) {
	c := NewClientWithService(&mockService{predictErr: status.Error(codes.InvalidArgument, "bad")})
	_, err := c.Predict(context.Background(), vec)
	if err == nil || errors.Is(err, estimator.ErrUnavailable) {
		t.Fatalf("expected plain error, got %v", err)
	}
	if status.Code(errors.Unwrap(err)) != codes.InvalidArgument {
		t.Fatalf("expected status preserved, got %v", err)
	}
}

func TestUpdate_SendsFeaturesAndTarget(t *testing.T) {
	mock := &mockService{}
	c := NewClientWithService(mock)
	if err := c.Update(context.Background(), vec, []float64{1, 4.85, 1, 1, 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := mock.lastUpdate.GetFields()
	if got := len(f["features"].GetListValue().GetValues()); got != features.Arity {
		t.Fatalf("expected %d features, got %d", features.Arity, got)
	}
	if got := f["target"].GetListValue().GetValues()[1].GetNumberValue(); got != 4.85 {
		t.Fatalf("expected target[1]=4.85, got %v", got)
	}
}

func TestUpdate_DeadlineMapped(t *testing.T) {
	c := NewClientWithService(&mockService{updateErr: status.Error(codes.DeadlineExceeded, "slow")})
	err := c.Update(context.Background(), vec, []float64{0, 0, 0, 0, 0})
	if !errors.Is(err, estimator.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

// #endregion client-tests

// #region bufconn-tests
func TestRoundTripMatchesLocal(t *testing.T) {
	m := newMLP(t)
	want, _ := m.Predict(context.Background(), vec)

	c := dialBufconn(t, estimator.NewGuarded(m, estimator.GuardedOptions{}))
	got, err := c.Predict(context.Background(), vec)
	if err != nil {
		t.Fatalf("remote predict: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("score %d: remote %v, local %v", i, got[i], want[i])
		}
	}
}

func TestRemoteUpdateMovesPrediction(t *testing.T) {
	m := newMLP(t)
	c := dialBufconn(t, estimator.NewGuarded(m, estimator.GuardedOptions{}))
	ctx := context.Background()

	before, err := c.Predict(ctx, vec)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	target := append([]float64(nil), before...)
	target[1] = before[1] + 5

	for i := 0; i < 50; i++ {
		if err := c.Update(ctx, vec, target); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}
	after, _ := c.Predict(ctx, vec)
	if !(after[1] > before[1]) {
		t.Fatalf("expected score 1 to rise: before %v, after %v", before[1], after[1])
	}
}

func TestRemoteShapeRejected(t *testing.T) {
	c := dialBufconn(t, newMLP(t))
	_, err := c.client.Predict(context.Background(), numberList([]float64{1, 2}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestRemoteEstimatorFailureIsUnavailable(t *testing.T) {
	c := dialBufconn(t, failingEstimator{err: estimator.ErrUnavailable})
	_, err := c.Predict(context.Background(), vec)
	if !errors.Is(err, estimator.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	c = dialBufconn(t, failingEstimator{err: errors.New("boom")})
	_, err = c.Predict(context.Background(), vec)
	if errors.Is(err, estimator.ErrUnavailable) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	lis := bufconn.Listen(1 << 16)
	m := newMLP(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, lis, m, logging.Nop()) }()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Serve: %v", err)
	}
}

// #endregion bufconn-tests
