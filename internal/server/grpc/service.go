package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Service and method names on the wire.
const (
	ServiceName      = "visionhook.v1.Inference"
	InvokeFullMethod = "/" + ServiceName + "/Invoke"
)

// Metadata keys carrying the request and response media types.
const (
	MetadataContentType = "x-content-type"
	MetadataAccept      = "accept"
)

// InferenceServer is the server API of visionhook.v1.Inference. The request
// carries the encoded image and the response holds the nested prediction list.
type InferenceServer interface {
	Invoke(context.Context, *wrapperspb.BytesValue) (*structpb.ListValue, error)
}

// RegisterInferenceServer registers srv on s.
func RegisterInferenceServer(s grpc.ServiceRegistrar, srv InferenceServer) {
	s.RegisterService(&inferenceServiceDesc, srv)
}

var inferenceServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InferenceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Invoke",
			Handler:    invokeHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "visionhook/v1/inference.proto",
}

func invokeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InferenceServer).Invoke(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: InvokeFullMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InferenceServer).Invoke(ctx, req.(*wrapperspb.BytesValue))
	}

	return interceptor(ctx, in, info, handler)
}

// Client calls visionhook.v1.Inference.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a client on cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Invoke classifies one encoded image.
func (c *Client) Invoke(ctx context.Context, image []byte, contentType, accept string, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	ctx = metadata.AppendToOutgoingContext(ctx, MetadataContentType, contentType, MetadataAccept, accept)

	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, InvokeFullMethod, wrapperspb.Bytes(image), out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
