package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name. Requests and
// responses are google.protobuf.Struct documents.
const ServiceName = "ordmap.v1.OrderedMap"

const (
	MethodPut    = "Put"
	MethodGet    = "Get"
	MethodDelete = "Delete"
	MethodScan   = "Scan"
	MethodMin    = "Min"
	MethodMax    = "Max"
	MethodStats  = "Stats"
	MethodDump   = "Dump"
	MethodClear  = "Clear"
)

// OrderedMapServer is the server side of ordmap.v1.OrderedMap.
type OrderedMapServer interface {
	Put(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Get(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Delete(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Scan(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Min(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Max(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Stats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Dump(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Clear(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(OrderedMapServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

var OrderedMapServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrderedMapServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodPut, Handler: handler(MethodPut, OrderedMapServer.Put)},
		{MethodName: MethodGet, Handler: handler(MethodGet, OrderedMapServer.Get)},
		{MethodName: MethodDelete, Handler: handler(MethodDelete, OrderedMapServer.Delete)},
		{MethodName: MethodScan, Handler: handler(MethodScan, OrderedMapServer.Scan)},
		{MethodName: MethodMin, Handler: handler(MethodMin, OrderedMapServer.Min)},
		{MethodName: MethodMax, Handler: handler(MethodMax, OrderedMapServer.Max)},
		{MethodName: MethodStats, Handler: handler(MethodStats, OrderedMapServer.Stats)},
		{MethodName: MethodDump, Handler: handler(MethodDump, OrderedMapServer.Dump)},
		{MethodName: MethodClear, Handler: handler(MethodClear, OrderedMapServer.Clear)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ordmap/v1/ordered_map.proto",
}

func RegisterOrderedMapServer(s grpc.ServiceRegistrar, srv OrderedMapServer) {
	s.RegisterService(&OrderedMapServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func handler(method string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(OrderedMapServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod(method),
		}
		next := func(ctx context.Context, req any) (any, error) {
			return call(srv.(OrderedMapServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, next)
	}
}
