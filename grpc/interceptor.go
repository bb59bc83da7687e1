package grpc

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	hb "github.com/panyam/habitbuddy"
)

// InterceptorConfig configures the auth interceptor behavior.
type InterceptorConfig struct {
	// Config holds the metadata key configuration.
	*Config

	// Verifier checks session tokens. Required.
	Verifier hb.TokenVerifier

	// RequireAuth when true rejects unauthenticated requests.
	// When false, requests without a valid token proceed but
	// UserIDFromContext returns empty.
	RequireAuth bool

	// PublicMethods is a set of method names that don't require auth.
	// Only used when RequireAuth is true.
	// Keys should be full method names like "/package.Service/Method".
	PublicMethods map[string]bool
}

// NewInterceptorConfig returns a config that requires auth for every method
// except publicMethods.
func NewInterceptorConfig(verifier hb.TokenVerifier, publicMethods ...string) *InterceptorConfig {
	config := &InterceptorConfig{
		Config:        DefaultConfig(),
		Verifier:      verifier,
		RequireAuth:   true,
		PublicMethods: make(map[string]bool),
	}
	for _, method := range publicMethods {
		config.PublicMethods[method] = true
	}
	return config
}

// OptionalAuthConfig returns a config that allows unauthenticated requests.
func OptionalAuthConfig(verifier hb.TokenVerifier) *InterceptorConfig {
	config := NewInterceptorConfig(verifier)
	config.RequireAuth = false
	return config
}

func (c *InterceptorConfig) ensureDefaults() {
	if c.Verifier == nil {
		panic("grpc: InterceptorConfig.Verifier is required")
	}
	if c.Config == nil {
		c.Config = DefaultConfig()
	}
	c.Config.EnsureDefaults()
}

// authenticate returns ctx with the caller's user ID bound, or an
// Unauthenticated status when the method needs a user and none is present.
func (c *InterceptorConfig) authenticate(ctx context.Context, method string) (context.Context, error) {
	required := c.RequireAuth && !c.PublicMethods[method]

	token, err := tokenFromIncomingContext(ctx, c.Config)
	if err == nil {
		var userID string
		userID, err = c.Verifier.VerifyToken(token)
		if err == nil {
			return hb.SetUserIDInContext(ctx, userID), nil
		}
	}
	if required {
		slog.Debug("Rejected gRPC call", "method", method, "error", err)
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}
	return ctx, nil
}

// UnaryAuthInterceptor returns a gRPC unary interceptor that verifies the
// bearer token in the request metadata.
func UnaryAuthInterceptor(config *InterceptorConfig) grpc.UnaryServerInterceptor {
	config.ensureDefaults()

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		ctx, err := config.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamAuthInterceptor returns a gRPC stream interceptor that verifies the
// bearer token in the stream metadata.
func StreamAuthInterceptor(config *InterceptorConfig) grpc.StreamServerInterceptor {
	config.ensureDefaults()

	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := config.authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &authedStream{ServerStream: ss, ctx: ctx})
	}
}

// authedStream overrides the stream context with the authenticated one
type authedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authedStream) Context() context.Context {
	return s.ctx
}
