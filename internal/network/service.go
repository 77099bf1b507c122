package network

import (
	"context"

	"google.golang.org/grpc"

	"github.com/nodecore/node/internal/wire"
)

const (
	serviceName  = "node.Dispatch"
	sendMethod   = "Send"
	fullSendPath = "/" + serviceName + "/" + sendMethod
)

type sendRequest struct {
	Envelope wire.Envelope `json:"envelope"`
}

type sendResponse struct {
	OK bool `json:"ok"`
}

// InboundHandler receives a validated-later envelope delivered over the
// wire from a peer node. The network layer does not itself run the C9
// validation pipeline — it only transports the envelope to whatever local
// component (usually the API server) is wired as the handler.
type InboundHandler interface {
	HandleInbound(ctx context.Context, env wire.Envelope) error
}

func sendHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	var req sendRequest
	if err := dec(&req); err != nil {
		return nil, err
	}
	handler := srv.(InboundHandler)
	if err := handler.HandleInbound(ctx, req.Envelope); err != nil {
		return nil, err
	}
	return &sendResponse{OK: true}, nil
}

var dispatchServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*InboundHandler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: sendMethod, Handler: sendHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "internal/network/service.go",
}

// RegisterDispatchServer registers handler as the gRPC-transported C11
// inbound endpoint on s.
func RegisterDispatchServer(s *grpc.Server, handler InboundHandler) {
	s.RegisterService(&dispatchServiceDesc, handler)
}
