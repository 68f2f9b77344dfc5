package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/Billy-Davies-2/xpulse-cards/internal/auth"
	"github.com/Billy-Davies-2/xpulse-cards/internal/logger"
)

// AuthorizationMetadataKey carries "Bearer <token>" on every call
const AuthorizationMetadataKey = "authorization"

// UnaryAuthInterceptor verifies the caller's token and puts the user on
// the handler context
func UnaryAuthInterceptor(p auth.Provider) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		ctx, err := authenticate(ctx, p)
		if err != nil {
			logger.Debug("gRPC: Rejected call", "method", info.FullMethod, "error", err)
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamAuthInterceptor is the streaming counterpart of UnaryAuthInterceptor
func StreamAuthInterceptor(p auth.Provider) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := authenticate(ss.Context(), p)
		if err != nil {
			logger.Debug("gRPC: Rejected stream", "method", info.FullMethod, "error", err)
			return err
		}
		return handler(srv, &authenticatedStream{ServerStream: ss, ctx: ctx})
	}
}

func authenticate(ctx context.Context, p auth.Provider) (context.Context, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	var token string
	if values := md.Get(AuthorizationMetadataKey); len(values) > 0 {
		token = auth.BearerToken(values[0])
	}
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing bearer token")
	}

	user, err := p.Authenticate(ctx, token)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, auth.ErrUnauthenticated.Error())
	}
	return auth.WithUser(ctx, user), nil
}

type authenticatedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authenticatedStream) Context() context.Context {
	return s.ctx
}
