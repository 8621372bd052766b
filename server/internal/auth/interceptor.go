package auth

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// APIKeyInterceptor returns a gRPC UnaryServerInterceptor that enforces the
// Guard's API key on every incoming call.
//
// Behaviour:
//   - If the Guard is disabled, all calls are allowed (pass-through).
//   - Otherwise the key is read from the Guard's header in the incoming
//     gRPC metadata.
//   - A missing, empty, or incorrect key returns codes.Unauthenticated.
func APIKeyInterceptor(g *Guard) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if err := g.checkMetadata(ctx); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// APIKeyStreamInterceptor is the streaming counterpart of APIKeyInterceptor.
// It guards long-lived calls such as the health Watch stream.
func APIKeyStreamInterceptor(g *Guard) grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if err := g.checkMetadata(ss.Context()); err != nil {
			return err
		}
		return handler(srv, ss)
	}
}

func (g *Guard) checkMetadata(ctx context.Context) error {
	s := g.state.Load()
	if !s.enabled {
		return nil
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}

	var got string
	if vals := md.Get(s.header); len(vals) > 0 {
		got = vals[0]
	}
	if !s.allow(got) {
		return status.Error(codes.Unauthenticated, "invalid api key")
	}
	return nil
}
