package habitbuddy

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey string

const contextKeyUserID contextKey = "habitbuddy_user_id"

// SetUserIDInContext binds an authenticated user ID to ctx
func SetUserIDInContext(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKeyUserID, userID)
}

// GetUserIDFromContext returns the user ID bound by the auth middleware, or
// "" if the request was not authenticated.
func GetUserIDFromContext(ctx context.Context) string {
	if v := ctx.Value(contextKeyUserID); v != nil {
		if userID, ok := v.(string); ok {
			return userID
		}
	}
	return ""
}

// ParseBearer extracts the token from an "Authorization: Bearer <token>" value
func ParseBearer(value string) (string, error) {
	if value == "" {
		return "", fmt.Errorf("%w: missing authorization header", ErrUnauthenticated)
	}
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("%w: invalid authorization header format", ErrUnauthenticated)
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", fmt.Errorf("%w: empty token", ErrUnauthenticated)
	}
	return token, nil
}

// Middleware guards handlers that need an authenticated user
type Middleware struct {
	Verifier TokenVerifier

	// AuthHeader defaults to "Authorization"
	AuthHeader string

	// OnAuthError writes the rejection. Defaults to a 401 JSON message.
	OnAuthError func(w http.ResponseWriter, r *http.Request, err error)
}

// Authenticate verifies the bearer token on r and returns its user ID
func (m *Middleware) Authenticate(r *http.Request) (string, error) {
	header := m.AuthHeader
	if header == "" {
		header = "Authorization"
	}
	token, err := ParseBearer(r.Header.Get(header))
	if err != nil {
		return "", err
	}
	userID, err := m.Verifier.VerifyToken(token)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	return userID, nil
}

// RequireUser rejects requests without a valid bearer token. On success the
// user ID is bound to the request context for downstream handlers.
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := m.Authenticate(r)
		if err != nil {
			m.handleAuthError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(SetUserIDInContext(r.Context(), userID)))
	})
}

func (m *Middleware) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	if m.OnAuthError != nil {
		m.OnAuthError(w, r, err)
		return
	}
	slog.Debug("rejected request", "path", r.URL.Path, "error", err)

	message := "Invalid token"
	if r.Header.Get(m.headerName()) == "" {
		message = "No token provided"
	}
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	writeMessage(w, http.StatusUnauthorized, message)
}

func (m *Middleware) headerName() string {
	if m.AuthHeader == "" {
		return "Authorization"
	}
	return m.AuthHeader
}
