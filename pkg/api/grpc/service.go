package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "exprtk.v1.Expressions"

// ExpressionsServer is the server API for the Expressions service. Every
// message is a google.protobuf.Struct.
type ExpressionsServer interface {
	Tokenize(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Validate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetExpression(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListExpressions(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(ExpressionsServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ExpressionsServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(ExpressionsServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the Expressions service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExpressionsServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("Tokenize", ExpressionsServer.Tokenize),
		unaryHandler("Validate", ExpressionsServer.Validate),
		unaryHandler("GetExpression", ExpressionsServer.GetExpression),
		unaryHandler("ListExpressions", ExpressionsServer.ListExpressions),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "exprtk/v1/expressions.proto",
}

// Client calls the Expressions service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Tokenize tokenizes {source, emitWhitespace?, emitComments?}.
func (c *Client) Tokenize(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Tokenize", in, opts...)
}

// Validate checks {expressions, schema}.
func (c *Client) Validate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Validate", in, opts...)
}

// GetExpression fetches a stored expression by {name}.
func (c *Client) GetExpression(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetExpression", in, opts...)
}

// ListExpressions lists stored expressions.
func (c *Client) ListExpressions(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListExpressions", in, opts...)
}
