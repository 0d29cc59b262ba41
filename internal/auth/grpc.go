package auth

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

func clientIP(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok {
		return p.Addr.String()
	}
	return "unknown"
}

// authenticate checks the key in the incoming metadata
func (v *APIKeyValidator) authenticate(ctx context.Context, method string) (context.Context, error) {
	ctx = withRequestID(ctx)
	fail := func(code codes.Code, reason string) error {
		v.failureLogger.Warn("Authentication failed",
			"reason", reason,
			"method", method,
			"request_id", RequestID(ctx),
			"client_ip", clientIP(ctx))
		return status.Error(code, reason)
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, fail(codes.Unauthenticated, "missing metadata")
	}
	keys := md.Get(HeaderAPIKey)
	if len(keys) == 0 {
		return nil, fail(codes.Unauthenticated, "missing API key")
	}
	if !v.ValidateAPIKey(keys[0]) {
		return nil, fail(codes.Unauthenticated, "invalid API key")
	}
	if !v.CheckRateLimit(keys[0]) {
		return nil, fail(codes.ResourceExhausted, "rate limit exceeded for API key")
	}
	return ctx, nil
}

// UnaryServerInterceptor authenticates unary calls
func (v *APIKeyValidator) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		ctx, err := v.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor authenticates stream initiation
func (v *APIKeyValidator) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := v.authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx})
	}
}

type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}

// UnaryClientInterceptor attaches apiKey to outgoing unary calls
func UnaryClientInterceptor(apiKey string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if apiKey != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, HeaderAPIKey, apiKey)
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// StreamClientInterceptor attaches apiKey to outgoing streams
func StreamClientInterceptor(apiKey string) grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		if apiKey != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, HeaderAPIKey, apiKey)
		}
		return streamer(ctx, desc, cc, method, opts...)
	}
}
