package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the read-only report service.
const ServiceName = "boletas.report.v1.ReportService"

const (
	methodGetMonth = "/" + ServiceName + "/GetMonth"
	methodGetLocks = "/" + ServiceName + "/GetLocks"
)

// ReportService is served over gRPC. Requests and responses are
// google.protobuf.Struct so no generated stubs are needed.
type ReportService interface {
	GetMonth(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetLocks(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type reportCall func(ReportService, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(fullMethod string, call reportCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ReportService), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(ReportService), ctx, req.(*structpb.Struct))
		})
	}
}

var reportServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReportService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetMonth", Handler: unary(methodGetMonth, ReportService.GetMonth)},
		{MethodName: "GetLocks", Handler: unary(methodGetLocks, ReportService.GetLocks)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "boletas/report/v1/report.proto",
}

// RegisterReportServiceServer attaches srv to s.
func RegisterReportServiceServer(s grpc.ServiceRegistrar, srv ReportService) {
	s.RegisterService(&reportServiceDesc, srv)
}

// ReportClient calls ReportService on a connection.
type ReportClient struct {
	cc grpc.ClientConnInterface
}

func NewReportClient(cc grpc.ClientConnInterface) *ReportClient {
	return &ReportClient{cc: cc}
}

func (c *ReportClient) GetMonth(ctx context.Context, month string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodGetMonth, month, opts...)
}

func (c *ReportClient) GetLocks(ctx context.Context, month string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodGetLocks, month, opts...)
}

func (c *ReportClient) invoke(ctx context.Context, method, month string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"month": month})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
