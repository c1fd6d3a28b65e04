// Package grpcapi exposes the network status engine as the
// janus.v1.NetworkService gRPC service. Messages are google.protobuf.Struct
// values carrying the same fields as the JSON API.
package grpcapi

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/service"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/wire"
)

const serviceName = "janus.v1.NetworkService"

const (
	methodApplyAction     = "ApplyAction"
	methodGetNetwork      = "GetNetwork"
	methodListNetworks    = "ListNetworks"
	methodExportOverrides = "ExportOverrides"
	methodImportOverrides = "ImportOverrides"
	methodRunScan         = "RunScan"
)

func fullMethod(m string) string { return "/" + serviceName + "/" + m }

// ActionRequest targets one network by BSSID or "ssid:<name>".
type ActionRequest struct {
	Target string `json:"target"`
	Action string `json:"action,omitempty"`
}

type ListRequest struct {
	// Nearby restricts the list to recently seen, non-blocked networks.
	Nearby bool   `json:"nearby,omitempty"`
	Window string `json:"window,omitempty"`
}

type ScanRequest struct {
	Manual       bool                `json:"manual"`
	Observations []types.Observation `json:"observations"`
}

// NetworkServiceServer is the server API for janus.v1.NetworkService.
type NetworkServiceServer interface {
	ApplyAction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetNetwork(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListNetworks(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportOverrides(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ImportOverrides(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RunScan(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(method string, call func(NetworkServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(NetworkServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(NetworkServiceServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

// ServiceDesc is the grpc.ServiceDesc for janus.v1.NetworkService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*NetworkServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler(methodApplyAction, NetworkServiceServer.ApplyAction),
		unaryHandler(methodGetNetwork, NetworkServiceServer.GetNetwork),
		unaryHandler(methodListNetworks, NetworkServiceServer.ListNetworks),
		unaryHandler(methodExportOverrides, NetworkServiceServer.ExportOverrides),
		unaryHandler(methodImportOverrides, NetworkServiceServer.ImportOverrides),
		unaryHandler(methodRunScan, NetworkServiceServer.RunScan),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "janus/v1/network_service.proto",
}

// NetworkService implements NetworkServiceServer over the status machine
// and cycle coordinator.
type NetworkService struct {
	machine      *service.StatusMachine
	coordinator  *service.Coordinator
	nearbyWindow time.Duration
	now          func() time.Time
}

func NewNetworkService(sm *service.StatusMachine, co *service.Coordinator, nearbyWindow time.Duration) *NetworkService {
	if nearbyWindow <= 0 {
		nearbyWindow = 5 * time.Minute
	}
	return &NetworkService{
		machine:      sm,
		coordinator:  co,
		nearbyWindow: nearbyWindow,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *NetworkService) ApplyAction(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ActionRequest
	if err := wire.FromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	action, err := types.ParseUserAction(req.Action)
	if err != nil {
		return nil, toStatus(err)
	}
	res, err := s.machine.Apply(ctx, req.Target, action)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(res.Report())
}

func (s *NetworkService) GetNetwork(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ActionRequest
	if err := wire.FromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	rec, err := s.machine.Get(ctx, req.Target)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(rec)
}

func (s *NetworkService) ListNetworks(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ListRequest
	if err := wire.FromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	var (
		recs []types.NetworkRecord
		err  error
	)
	if req.Nearby {
		window := s.nearbyWindow
		if req.Window != "" {
			d, perr := time.ParseDuration(req.Window)
			if perr != nil || d <= 0 {
				return nil, status.Error(codes.InvalidArgument, "window must be a positive duration")
			}
			window = d
		}
		recs, err = s.machine.Nearby(ctx, s.now().Add(-window))
	} else {
		recs, err = s.machine.List(ctx)
	}
	if err != nil {
		return nil, toStatus(err)
	}

	snaps := make([]types.NetworkSnapshot, 0, len(recs))
	for _, r := range recs {
		snaps = append(snaps, r.Snapshot())
	}
	out, err := wire.ListToStruct("networks", snaps)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *NetworkService) ExportOverrides(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	exp, err := s.machine.Export(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(exp)
}

func (s *NetworkService) ImportOverrides(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var exp types.OverrideExport
	if err := wire.FromStruct(in, &exp); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	report, err := s.machine.Import(ctx, exp)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(report)
}

func (s *NetworkService) RunScan(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ScanRequest
	if err := wire.FromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	res, err := s.coordinator.RunCycle(ctx, req.Observations, req.Manual)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(res)
}

func encode(v any) (*structpb.Struct, error) {
	out, err := wire.ToStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// toStatus maps engine sentinels to gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrInvalidTarget),
		errors.Is(err, types.ErrInvalidBSSID),
		errors.Is(err, types.ErrInvalidSSID),
		errors.Is(err, types.ErrMalformedObservation),
		errors.Is(err, types.ErrUnknownAction):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
