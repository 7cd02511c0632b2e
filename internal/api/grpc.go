package api

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xtding233/scale-backend/internal/drycost"
	"github.com/xtding233/scale-backend/internal/scale"
)

const (
	ServiceName = "scaletype.v1.ScaleTypes"
	// DryCostHealth is the health service name that turns SERVING once the
	// dry cost computation has concluded.
	DryCostHealth = "drycost"
)

// Service answers scale type and dry cost queries.
type Service struct {
	Registry *scale.Registry
	Gate     scale.Unlocker
	DryCost  *drycost.Coordinator
	Log      *slog.Logger
}

// ScaleTypesServer is the gRPC surface of Service.
type ScaleTypesServer interface {
	Get(context.Context, *structpb.Struct) (*structpb.Struct, error)
	List(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DryCostReport(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// Get expects {"name": "<scale type>"}.
func (s *Service) Get(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name := req.GetFields()["name"].GetStringValue()
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "name is required")
	}
	st, ok := s.Registry.Lookup(name)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "no scale type %q", name)
	}
	return toStruct(scaleTypeView(st, s.Gate))
}

func (s *Service) List(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	all := s.Registry.All()
	items := make([]any, 0, len(all))
	for _, st := range all {
		items = append(items, scaleTypeView(st, s.Gate))
	}
	return toStruct(map[string]any{"scale_types": items})
}

func (s *Service) DryCostReport(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if s.DryCost == nil {
		return nil, status.Error(codes.Unavailable, "dry cost computation not configured")
	}
	return toStruct(reportView(s.DryCost))
}

func toStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func unaryHandler(method string, call func(ScaleTypesServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ScaleTypesServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ScaleTypesServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ScaleTypesServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("Get", ScaleTypesServer.Get),
		unaryHandler("List", ScaleTypesServer.List),
		unaryHandler("DryCostReport", ScaleTypesServer.DryCostReport),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "scaletype/v1/scaletype.proto",
}

// NewGRPCServer registers s and a health service. The health status of
// DryCostHealth starts NOT_SERVING; call MarkConcluded when the run ends.
func NewGRPCServer(s *Service, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(logInterceptor(log)))
	srv := grpc.NewServer(opts...)
	srv.RegisterService(&serviceDesc, s)

	hs := health.NewServer()
	hs.SetServingStatus(DryCostHealth, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}

// MarkConcluded flips the dry cost health status to SERVING.
func MarkConcluded(hs *health.Server) {
	hs.SetServingStatus(DryCostHealth, healthpb.HealthCheckResponse_SERVING)
}

func logInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			log.Warn("grpc request failed", "method", info.FullMethod, "code", status.Code(err).String())
		} else {
			log.Debug("grpc request", "method", info.FullMethod)
		}
		return resp, err
	}
}
