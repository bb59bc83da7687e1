package habitbuddy_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	hb "github.com/panyam/habitbuddy"
	"github.com/panyam/habitbuddy/stores/fs"
)

const testSecret = "test-jwt-secret"

// fakeGoogle accepts ID tokens of the form "google:<email>"
type fakeGoogle struct{}

func (fakeGoogle) Verify(ctx context.Context, idToken string) (*hb.IdentityClaims, error) {
	email, ok := strings.CutPrefix(idToken, "google:")
	if !ok || email == "" {
		return nil, fmt.Errorf("%w: bad signature", hb.ErrInvalidIdentityToken)
	}
	return &hb.IdentityClaims{Subject: "g-" + email, Email: email, EmailVerified: true, Name: "Google User"}, nil
}

// testEnv is a full server on a temp dir store
type testEnv struct {
	Store   *fs.Store
	Tokens  *hb.SessionTokens
	Auth    *hb.AuthService
	Server  *hb.Server
	Handler http.Handler
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := fs.New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	tokens, err := hb.NewSessionTokens(testSecret, "habitbuddy", time.Hour)
	if err != nil {
		t.Fatalf("Failed to create tokens: %v", err)
	}
	auth := &hb.AuthService{
		Users:    store,
		Hasher:   &hb.BcryptHasher{Cost: bcrypt.MinCost},
		Tokens:   tokens,
		Identity: fakeGoogle{},
	}
	server := &hb.Server{
		API: &hb.API{
			Auth:   auth,
			Habits: &hb.HabitService{Habits: store},
			DB:     store,
		},
		Middleware: &hb.Middleware{Verifier: tokens},
	}
	return &testEnv{
		Store:   store,
		Tokens:  tokens,
		Auth:    auth,
		Server:  server,
		Handler: server.Handler(),
	}
}

// do sends a JSON request and returns the recorded response
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.Handler.ServeHTTP(rr, req)
	return rr
}

// register creates an account over HTTP and returns its session
func (e *testEnv) register(t *testing.T, email, password, name string) hb.AuthResult {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "password": password, "name": name,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Register %s: expected 200, got %d: %s", email, rr.Code, rr.Body.String())
	}
	var result hb.AuthResult
	decode(t, rr, &result)
	return result
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rr.Body.String(), err)
	}
}

func message(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var msg hb.MessageResponse
	decode(t, rr, &msg)
	return msg.Message
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
