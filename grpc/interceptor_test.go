package grpc

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	hb "github.com/panyam/habitbuddy"
)

func newTokens(t *testing.T) *hb.SessionTokens {
	t.Helper()
	tokens, err := hb.NewSessionTokens("grpc-test-secret", "habitbuddy", time.Hour)
	if err != nil {
		t.Fatalf("NewSessionTokens failed: %v", err)
	}
	return tokens
}

func issue(t *testing.T, tokens *hb.SessionTokens, userID string) string {
	t.Helper()
	token, _, err := tokens.IssueToken(userID)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	return token
}

// incoming converts outgoing metadata into what the server side would see
func incoming(ctx context.Context) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	return metadata.NewIncomingContext(context.Background(), md)
}

func assertUnauthenticated(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error for unauthenticated request")
	}
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("expected grpc status error, got %v", err)
	}
	if st.Code() != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated code, got %v", st.Code())
	}
}

func TestDefaultConfig(t *testing.T) {
	config := &Config{}
	config.EnsureDefaults()
	if config.MetadataKeyAuthorization != DefaultMetadataKeyAuthorization {
		t.Errorf("expected key %q, got %q", DefaultMetadataKeyAuthorization, config.MetadataKeyAuthorization)
	}
}

func TestNewInterceptorConfig(t *testing.T) {
	config := NewInterceptorConfig(newTokens(t), "/habits.Habits/Health")
	if !config.RequireAuth {
		t.Error("expected RequireAuth to be true")
	}
	if !config.PublicMethods["/habits.Habits/Health"] {
		t.Error("expected Health to be public")
	}
	if config.PublicMethods["/habits.Habits/List"] {
		t.Error("expected List to not be public")
	}
	if OptionalAuthConfig(newTokens(t)).RequireAuth {
		t.Error("expected RequireAuth to be false for optional config")
	}
}

func TestUnaryAuthInterceptor(t *testing.T) {
	tokens := newTokens(t)
	other, err := hb.NewSessionTokens("some-other-secret", "habitbuddy", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	info := &grpc.UnaryServerInfo{FullMethod: "/habits.Habits/List"}

	tests := []struct {
		name     string
		ctx      context.Context
		wantUser string
		wantErr  bool
	}{
		{"no metadata", context.Background(), "", true},
		{"valid token", incoming(TokenToOutgoingContext(context.Background(), issue(t, tokens, "user123"))), "user123", false},
		{"wrong secret", incoming(TokenToOutgoingContext(context.Background(), issue(t, other, "user123"))), "", true},
		{"garbage token", incoming(TokenToOutgoingContext(context.Background(), "not-a-jwt")), "", true},
		{"wrong scheme", metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Basic abc")), "", true},
	}

	interceptor := UnaryAuthInterceptor(NewInterceptorConfig(tokens))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser string
			handlerCalled := false
			_, err := interceptor(tt.ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				handlerCalled = true
				gotUser = UserIDFromContext(ctx)
				return "result", nil
			})
			if tt.wantErr {
				assertUnauthenticated(t, err)
				if handlerCalled {
					t.Error("handler should not be called")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gotUser != tt.wantUser {
				t.Errorf("expected user %q, got %q", tt.wantUser, gotUser)
			}
		})
	}
}

func TestUnaryAuthInterceptor_PublicMethod(t *testing.T) {
	interceptor := UnaryAuthInterceptor(NewInterceptorConfig(newTokens(t), "/habits.Habits/Health"))
	info := &grpc.UnaryServerInfo{FullMethod: "/habits.Habits/Health"}

	handlerCalled := false
	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		handlerCalled = true
		if IsAuthenticated(ctx) {
			t.Error("expected anonymous context")
		}
		return "result", nil
	})
	if err != nil {
		t.Fatalf("unexpected error for public method: %v", err)
	}
	if !handlerCalled {
		t.Error("handler should have been called for public method")
	}
}

func TestUnaryAuthInterceptor_OptionalAuth(t *testing.T) {
	tokens := newTokens(t)
	interceptor := UnaryAuthInterceptor(OptionalAuthConfig(tokens))
	info := &grpc.UnaryServerInfo{FullMethod: "/habits.Habits/List"}

	for _, ctx := range []context.Context{
		context.Background(),
		incoming(TokenToOutgoingContext(context.Background(), "not-a-jwt")),
	} {
		_, err := interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			if IsAuthenticated(ctx) {
				t.Error("expected anonymous context")
			}
			return nil, nil
		})
		if err != nil {
			t.Fatalf("unexpected error with optional auth: %v", err)
		}
	}

	ctx := incoming(TokenToOutgoingContext(context.Background(), issue(t, tokens, "user9")))
	_, err := interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		if got := UserIDFromContext(ctx); got != "user9" {
			t.Errorf("expected user9, got %q", got)
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUnaryAuthInterceptor_CustomKey(t *testing.T) {
	tokens := newTokens(t)
	config := NewInterceptorConfig(tokens)
	config.Config = &Config{MetadataKeyAuthorization: "x-session"}
	interceptor := UnaryAuthInterceptor(config)
	info := &grpc.UnaryServerInfo{FullMethod: "/habits.Habits/List"}

	ctx := incoming(TokenToOutgoingContextWithKey(context.Background(), issue(t, tokens, "u1"), "x-session"))
	if _, err := interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx = incoming(TokenToOutgoingContext(context.Background(), issue(t, tokens, "u1")))
	_, err := interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, nil
	})
	assertUnauthenticated(t, err)
}

type mockServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (m *mockServerStream) Context() context.Context {
	return m.ctx
}

func TestStreamAuthInterceptor(t *testing.T) {
	tokens := newTokens(t)
	interceptor := StreamAuthInterceptor(NewInterceptorConfig(tokens))
	info := &grpc.StreamServerInfo{FullMethod: "/habits.Habits/Watch"}

	err := interceptor(nil, &mockServerStream{ctx: context.Background()}, info, func(srv interface{}, stream grpc.ServerStream) error {
		t.Error("handler should not be called")
		return nil
	})
	assertUnauthenticated(t, err)

	ctx := incoming(TokenToOutgoingContext(context.Background(), issue(t, tokens, "streamer")))
	handlerCalled := false
	err = interceptor(nil, &mockServerStream{ctx: ctx}, info, func(srv interface{}, stream grpc.ServerStream) error {
		handlerCalled = true
		if got := UserIDFromContext(stream.Context()); got != "streamer" {
			t.Errorf("expected streamer, got %q", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handlerCalled {
		t.Error("handler should have been called")
	}
}

func TestInterceptorRequiresVerifier(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic without a verifier")
		}
	}()
	UnaryAuthInterceptor(&InterceptorConfig{RequireAuth: true})
}
