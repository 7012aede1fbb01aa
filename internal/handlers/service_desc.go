package handlers

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "riskmap.v1.RiskMapService"

// Method names of the RiskMap service
const (
	MethodWriteCatalog        = "WriteCatalog"
	MethodReadCatalog         = "ReadCatalog"
	MethodListCatalogVersions = "ListCatalogVersions"
	MethodValidateCatalog     = "ValidateCatalog"
	MethodDeleteCatalog       = "DeleteCatalog"
	MethodListRelations       = "ListRelations"
	MethodExpandRelation      = "ExpandRelation"
	MethodInitWidgets         = "InitWidgets"
)

// RiskMapServer is the server API for the RiskMap service.
// Messages are google.protobuf.Struct documents; field names are snake_case.
type RiskMapServer interface {
	WriteCatalog(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReadCatalog(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListCatalogVersions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ValidateCatalog(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteCatalog(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRelations(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExpandRelation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	InitWidgets(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(RiskMapServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) grpc.MethodDesc {
	fullMethod := FullMethod(method)
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RiskMapServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(RiskMapServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc is the grpc.ServiceDesc for the RiskMap service
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RiskMapServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler(MethodWriteCatalog, RiskMapServer.WriteCatalog),
		unaryHandler(MethodReadCatalog, RiskMapServer.ReadCatalog),
		unaryHandler(MethodListCatalogVersions, RiskMapServer.ListCatalogVersions),
		unaryHandler(MethodValidateCatalog, RiskMapServer.ValidateCatalog),
		unaryHandler(MethodDeleteCatalog, RiskMapServer.DeleteCatalog),
		unaryHandler(MethodListRelations, RiskMapServer.ListRelations),
		unaryHandler(MethodExpandRelation, RiskMapServer.ExpandRelation),
		unaryHandler(MethodInitWidgets, RiskMapServer.InitWidgets),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "riskmap/v1/riskmap.proto",
}

// RegisterRiskMapServer registers the service implementation with a gRPC server
func RegisterRiskMapServer(s grpc.ServiceRegistrar, srv RiskMapServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// FullMethod returns the full gRPC method path
// Example: FullMethod("InitWidgets") = "/riskmap.v1.RiskMapService/InitWidgets"
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// Client calls the RiskMap service over a client connection
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a new Client
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes a method with a JSON-like request document
func (c *Client) Call(ctx context.Context, method string, req map[string]interface{}, opts ...grpc.CallOption) (map[string]interface{}, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}
