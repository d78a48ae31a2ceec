package expertfinder

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const serviceName = "expertfinder.Finder"

const (
	findMethod  = "/" + serviceName + "/Find"
	statsMethod = "/" + serviceName + "/Stats"
)

// Messages are protobuf well-known types:
//
//	Find:  wrapperspb.StringValue (the query) -> structpb.ListValue of result structs
//	Stats: emptypb.Empty -> structpb.Struct{users, completed_users, resources}
//
// A result struct has the fields id, network, external_id, url, text and,
// for geotagged resources, location{name, lat, lon}.
const (
	fieldID         = "id"
	fieldNetwork    = "network"
	fieldExternalID = "external_id"
	fieldURL        = "url"
	fieldText       = "text"
	fieldLocation   = "location"
	fieldName       = "name"
	fieldLat        = "lat"
	fieldLon        = "lon"

	fieldUsers          = "users"
	fieldCompletedUsers = "completed_users"
	fieldResources      = "resources"
)

// FinderServer is the server API of the Finder service.
type FinderServer interface {
	Find(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
	Stats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterFinderServer registers srv on s.
func RegisterFinderServer(s grpc.ServiceRegistrar, srv FinderServer) {
	s.RegisterService(&finderServiceDesc, srv)
}

var finderServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*FinderServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Find", Handler: findHandler},
		{MethodName: "Stats", Handler: statsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "expertfinder",
}

func findHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FinderServer).Find(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: findMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FinderServer).Find(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func statsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FinderServer).Stats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: statsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FinderServer).Stats(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}
