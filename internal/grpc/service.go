package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Service and method names of xpulse.v1.CardService. Messages are well-known
// Struct/Empty types so no generated code is needed.
const (
	ServiceName = "xpulse.v1.CardService"

	ExecuteMethod      = "/xpulse.v1.CardService/Execute"
	GetProfileMethod   = "/xpulse.v1.CardService/GetProfile"
	StreamEventsMethod = "/xpulse.v1.CardService/StreamEvents"
)

// CardServiceServer is the server API for CardService
type CardServiceServer interface {
	Execute(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StreamEvents(*emptypb.Empty, CardService_StreamEventsServer) error
}

// CardService_StreamEventsServer is the server side of StreamEvents
type CardService_StreamEventsServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type cardServiceStreamEventsServer struct {
	grpc.ServerStream
}

func (x *cardServiceStreamEventsServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

func unaryHandler(method string, call func(CardServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CardServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(CardServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func streamEventsHandler(srv interface{}, stream grpc.ServerStream) error {
	m := new(emptypb.Empty)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(CardServiceServer).StreamEvents(m, &cardServiceStreamEventsServer{stream})
}

// CardService_ServiceDesc is the grpc.ServiceDesc for CardService
var CardService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CardServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Execute",
			Handler: unaryHandler(ExecuteMethod, func(s CardServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.Execute(ctx, in)
			}),
		},
		{
			MethodName: "GetProfile",
			Handler: unaryHandler(GetProfileMethod, func(s CardServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.GetProfile(ctx, in)
			}),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamEvents",
			Handler:       streamEventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "xpulse/v1/cards.proto",
}

// RegisterCardServiceServer registers srv on s
func RegisterCardServiceServer(s grpc.ServiceRegistrar, srv CardServiceServer) {
	s.RegisterService(&CardService_ServiceDesc, srv)
}

// CardServiceClient calls CardService
type CardServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewCardServiceClient creates a client over cc
func NewCardServiceClient(cc grpc.ClientConnInterface) *CardServiceClient {
	return &CardServiceClient{cc: cc}
}

// Execute runs one command line
func (c *CardServiceClient) Execute(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ExecuteMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProfile fetches a profile snapshot
func (c *CardServiceClient) GetProfile(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetProfileMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// CardService_StreamEventsClient is the client side of StreamEvents
type CardService_StreamEventsClient interface {
	Recv() (*structpb.Struct, error)
	grpc.ClientStream
}

type cardServiceStreamEventsClient struct {
	grpc.ClientStream
}

func (x *cardServiceStreamEventsClient) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// StreamEvents subscribes to progression events
func (c *CardServiceClient) StreamEvents(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (CardService_StreamEventsClient, error) {
	stream, err := c.cc.NewStream(ctx, &CardService_ServiceDesc.Streams[0], StreamEventsMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &cardServiceStreamEventsClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
