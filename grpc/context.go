// Package grpc carries habitbuddy session tokens over gRPC metadata and
// guards gRPC services with the same token verification as the HTTP API.
package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc/metadata"

	hb "github.com/panyam/habitbuddy"
)

// DefaultMetadataKeyAuthorization is the gRPC metadata key holding the
// "Bearer <token>" value. gRPC lowercases all metadata keys.
const DefaultMetadataKeyAuthorization = "authorization"

// Config holds the metadata key configuration for auth context.
type Config struct {
	// MetadataKeyAuthorization defaults to "authorization".
	MetadataKeyAuthorization string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MetadataKeyAuthorization: DefaultMetadataKeyAuthorization,
	}
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKeyAuthorization == "" {
		c.MetadataKeyAuthorization = DefaultMetadataKeyAuthorization
	}
}

// UserIDFromContext returns the user ID bound by the auth interceptor.
// Returns empty string if no user is authenticated.
func UserIDFromContext(ctx context.Context) string {
	return hb.GetUserIDFromContext(ctx)
}

// IsAuthenticated returns true if there is an authenticated user in the context.
func IsAuthenticated(ctx context.Context) bool {
	return UserIDFromContext(ctx) != ""
}

// TokenToOutgoingContext adds a session token to outgoing gRPC context metadata.
func TokenToOutgoingContext(ctx context.Context, token string) context.Context {
	return TokenToOutgoingContextWithKey(ctx, token, DefaultMetadataKeyAuthorization)
}

// TokenToOutgoingContextWithKey adds a session token with a custom key.
func TokenToOutgoingContextWithKey(ctx context.Context, token string, key string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, key, "Bearer "+token)
}

// tokenFromIncomingContext reads the bearer token from incoming metadata
func tokenFromIncomingContext(ctx context.Context, config *Config) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", fmt.Errorf("%w: no metadata", hb.ErrUnauthenticated)
	}
	var value string
	if values := md.Get(config.MetadataKeyAuthorization); len(values) > 0 {
		value = values[0]
	}
	return hb.ParseBearer(value)
}
