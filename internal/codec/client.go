// Package codec carries the ValueEstimator contract over gRPC so the
// estimator can run in a separate process.
package codec

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/adaptive-tutor/internal/estimator"
	"github.com/danielpatrickdp/adaptive-tutor/internal/features"
)

// #region client-struct
// Client is a remote ValueEstimator.
type Client struct {
	conn   *grpc.ClientConn
	client EstimatorServiceClient
}

// #endregion client-struct

// #region constructor
// NewClient connects to an estimator server at addr.
func NewClient(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{
		conn:   conn,
		client: NewEstimatorServiceClient(conn),
	}, nil
}

// NewClientWithService creates a Client with an injected service implementation.
// Used for testing without a real gRPC connection.
func NewClientWithService(svc EstimatorServiceClient) *Client {
	return &Client{client: svc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region predict
// Predict asks the remote estimator for per-topic scores.
func (c *Client) Predict(ctx context.Context, v features.Vector) ([]float64, error) {
	resp, err := c.client.Predict(ctx, numberList(v.Slice()))
	if err != nil {
		return nil, rpcError("predict rpc", err)
	}
	scores, err := numbers(resp)
	if err != nil {
		return nil, fmt.Errorf("predict rpc: %w", err)
	}
	return scores, nil
}

// #endregion predict

// #region update
// Update sends one training target to the remote estimator.
func (c *Client) Update(ctx context.Context, v features.Vector, target []float64) error {
	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		"features": structpb.NewListValue(numberList(v.Slice())),
		"target":   structpb.NewListValue(numberList(target)),
	}}
	if _, err := c.client.Update(ctx, req); err != nil {
		return rpcError("update rpc", err)
	}
	return nil
}

// #endregion update

// #region errors
// rpcError marks transport-level failures as estimator unavailability.
func rpcError(op string, err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled, codes.ResourceExhausted:
		return fmt.Errorf("%w: %s: %w", estimator.ErrUnavailable, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// #endregion errors

// #region wire
func numberList(xs []float64) *structpb.ListValue {
	vals := make([]*structpb.Value, len(xs))
	for i, x := range xs {
		vals[i] = structpb.NewNumberValue(x)
	}
	return &structpb.ListValue{Values: vals}
}

func numbers(l *structpb.ListValue) ([]float64, error) {
	out := make([]float64, len(l.GetValues()))
	for i, v := range l.GetValues() {
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, fmt.Errorf("element %d is not a number", i)
		}
		out[i] = n.NumberValue
	}
	return out, nil
}

// #endregion wire
