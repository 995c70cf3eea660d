package codec

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region service-names
const (
	serviceName   = "tutor.ValueEstimator"
	predictMethod = "/tutor.ValueEstimator/Predict"
	updateMethod  = "/tutor.ValueEstimator/Update"
)

// #endregion service-names

// #region client-stub
// EstimatorServiceClient is the client side of the ValueEstimator service.
// Predict takes the feature vector as a list of numbers; Update takes a struct
// with "features" and "target" number lists.
type EstimatorServiceClient interface {
	Predict(ctx context.Context, in *structpb.ListValue, opts ...grpc.CallOption) (*structpb.ListValue, error)
	Update(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type estimatorServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewEstimatorServiceClient binds the service to a connection.
func NewEstimatorServiceClient(cc grpc.ClientConnInterface) EstimatorServiceClient {
	return &estimatorServiceClient{cc: cc}
}

func (c *estimatorServiceClient) Predict(ctx context.Context, in *structpb.ListValue, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, predictMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *estimatorServiceClient) Update(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, updateMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// #endregion client-stub

// #region server-stub
// EstimatorServiceServer is the server side of the ValueEstimator service.
type EstimatorServiceServer interface {
	Predict(ctx context.Context, in *structpb.ListValue) (*structpb.ListValue, error)
	Update(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error)
}

// RegisterEstimatorServiceServer attaches srv to a gRPC server.
func RegisterEstimatorServiceServer(s grpc.ServiceRegistrar, srv EstimatorServiceServer) {
	s.RegisterService(&estimatorServiceDesc, srv)
}

var estimatorServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*EstimatorServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Predict", Handler: predictHandler},
		{MethodName: "Update", Handler: updateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tutor/estimator.proto",
}

func predictHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.ListValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EstimatorServiceServer).Predict(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: predictMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EstimatorServiceServer).Predict(ctx, req.(*structpb.ListValue))
	}
	return interceptor(ctx, in, info, handler)
}

func updateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EstimatorServiceServer).Update(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: updateMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EstimatorServiceServer).Update(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// #endregion server-stub
