package grpctransport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/corray333/backend-labs/kitchen/internal/service/models/order"
	"github.com/corray333/backend-labs/kitchen/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/kitchen/internal/service/services/syncsvc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "kitchen.v1.KitchenService"

// KitchenServiceServer is the server API of kitchen.v1.KitchenService. Messages are
// protobuf well-known types so no generated code is needed.
type KitchenServiceServer interface {
	SyncOrders(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	SyncProducts(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	ListOrders(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// KitchenServiceDesc describes kitchen.v1.KitchenService for grpc.Server.RegisterService.
var KitchenServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*KitchenServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SyncOrders", Handler: emptyHandler("SyncOrders", KitchenServiceServer.SyncOrders)},
		{MethodName: "SyncProducts", Handler: emptyHandler("SyncProducts", KitchenServiceServer.SyncProducts)},
		{MethodName: "ListOrders", Handler: listOrdersHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kitchen/v1/kitchen.proto",
}

func emptyHandler(
	method string,
	call func(KitchenServiceServer, context.Context, *emptypb.Empty) (*structpb.Struct, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(KitchenServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + method}

		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(KitchenServiceServer), ctx, req.(*emptypb.Empty))
		})
	}
}

func listOrdersHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KitchenServiceServer).ListOrders(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ListOrders"}

	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(KitchenServiceServer).ListOrders(ctx, req.(*structpb.Struct))
	})
}

type syncer interface {
	SyncOrders(ctx context.Context) syncsvc.Result
	SyncProducts(ctx context.Context) syncsvc.ProductsResult
}

type lister interface {
	ListPreset(ctx context.Context, preset ordersvc.Preset) ([]order.WithItems, error)
}

// KitchenServer implements KitchenServiceServer on top of the sync and order services.
type KitchenServer struct {
	sync   syncer
	orders lister
}

// NewKitchenServer creates a new KitchenServer.
func NewKitchenServer(sync syncer, orders lister) *KitchenServer {
	return &KitchenServer{
		sync:   sync,
		orders: orders,
	}
}

// SyncOrders runs an order synchronization. A failed run is returned in the body.
func (s *KitchenServer) SyncOrders(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	slog.Info("Received SyncOrders gRPC request")

	return toStruct(s.sync.SyncOrders(ctx))
}

// SyncProducts runs a product synchronization.
func (s *KitchenServer) SyncProducts(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	slog.Info("Received SyncProducts gRPC request")

	return toStruct(s.sync.SyncProducts(ctx))
}

// ListOrders returns {"orders": [...]} for the preset named in the request.
func (s *KitchenServer) ListOrders(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	preset := req.GetFields()["preset"].GetStringValue()
	slog.Info("Received ListOrders gRPC request", "preset", preset)

	if preset == "" {
		return nil, status.Error(codes.InvalidArgument, "preset is required")
	}

	orders, err := s.orders.ListPreset(ctx, ordersvc.Preset(preset))
	if err != nil {
		if errors.Is(err, ordersvc.ErrUnknownPreset) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		slog.Error("Error listing orders", "error", err)

		return nil, status.Errorf(codes.Internal, "failed to list orders: %v", err)
	}

	if orders == nil {
		orders = []order.WithItems{}
	}

	return toStruct(struct {
		Orders []order.WithItems `json:"orders"`
	}{Orders: orders})
}

// toStruct converts v through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}

	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode response: %v", err))
	}

	return out, nil
}
