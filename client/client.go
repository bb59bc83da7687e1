package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	hb "github.com/panyam/habitbuddy"
)

// ErrNotLoggedIn is returned by calls that need a session when none is stored
var ErrNotLoggedIn = errors.New("not logged in")

// APIError is a non 2xx response from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("habitbuddy: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("habitbuddy: HTTP %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// Client calls the habitbuddy API, attaching the stored session token
type Client struct {
	mu            sync.Mutex
	serverURL     string
	store         CredentialStore
	httpClient    *http.Client
	baseTransport http.RoundTripper
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom base HTTP client (for timeouts, TLS config, etc.)
// The transport from this client will be wrapped with auth handling.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil && client.Transport != nil {
			c.baseTransport = client.Transport
		}
		if client != nil {
			c.httpClient.Timeout = client.Timeout
			c.httpClient.CheckRedirect = client.CheckRedirect
			c.httpClient.Jar = client.Jar
		}
	}
}

// WithTransport sets a custom base transport (for connection pooling, proxies, etc.)
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.baseTransport = transport
	}
}

// NewClient creates a client for serverURL. If store is nil credentials are
// kept in memory only.
func NewClient(serverURL string, store CredentialStore, opts ...ClientOption) *Client {
	// Normalize server URL
	u, err := url.Parse(serverURL)
	if err == nil && u.Scheme != "" && u.Host != "" {
		serverURL = fmt.Sprintf("%s://%s", u.Scheme, u.Host)
	}
	if store == nil {
		store = NewMemoryCredentialStore()
	}

	c := &Client{
		serverURL:     serverURL,
		store:         store,
		httpClient:    &http.Client{},
		baseTransport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.httpClient.Transport = &AuthTransport{
		Base:        c.baseTransport,
		TokenSource: c.Token,
	}
	return c
}

// ServerURL returns the server URL this client is configured for
func (c *Client) ServerURL() string {
	return c.serverURL
}

// Token returns the stored session token, or "" if there is none or it has
// expired
func (c *Client) Token() (string, error) {
	cred, err := c.Credential()
	if err != nil || cred == nil || cred.IsExpired() {
		return "", err
	}
	return cred.Token, nil
}

// Credential returns the stored credential for this server
func (c *Client) Credential() (*ServerCredential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.GetCredential(c.serverURL)
}

// IsLoggedIn returns true if there is a non-expired credential
func (c *Client) IsLoggedIn() bool {
	token, err := c.Token()
	return err == nil && token != ""
}

// SetToken stores token as the session for this server
func (c *Client) SetToken(token string, user *hb.User) error {
	var userID, email string
	if user != nil {
		userID, email = user.ID, user.Email
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.SetCredential(c.serverURL, NewServerCredential(token, userID, email)); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	if err := c.store.Save(); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// Logout removes the credential for this server
func (c *Client) Logout() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.RemoveCredential(c.serverURL); err != nil {
		return err
	}
	return c.store.Save()
}

// =============================================================================
// Auth
// =============================================================================

// Register creates an account and stores the returned session
func (c *Client) Register(ctx context.Context, email, password, name string) (*hb.AuthResult, error) {
	body := map[string]string{"email": email, "password": password, "name": name}
	return c.authenticate(ctx, "/api/auth/register", body)
}

// Login exchanges email and password for a session
func (c *Client) Login(ctx context.Context, email, password string) (*hb.AuthResult, error) {
	body := map[string]string{"email": email, "password": password}
	return c.authenticate(ctx, "/api/auth/login", body)
}

// GoogleLogin exchanges a Google ID token for a session
func (c *Client) GoogleLogin(ctx context.Context, idToken string) (*hb.AuthResult, error) {
	return c.authenticate(ctx, "/api/auth/google", map[string]string{"token": idToken})
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*hb.AuthResult, error) {
	var result hb.AuthResult
	if err := c.do(ctx, http.MethodPost, path, body, &result); err != nil {
		return nil, err
	}
	if err := c.SetToken(result.Token, result.User); err != nil {
		return nil, err
	}
	return &result, nil
}

// Me returns the logged in user
func (c *Client) Me(ctx context.Context) (*hb.User, error) {
	var user hb.User
	if err := c.doAuthed(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Health calls the unauthenticated health endpoint
func (c *Client) Health(ctx context.Context) (*hb.HealthResponse, error) {
	var health hb.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// =============================================================================
// Habits
// =============================================================================

func (c *Client) ListHabits(ctx context.Context) ([]*hb.Habit, error) {
	habits := []*hb.Habit{}
	if err := c.doAuthed(ctx, http.MethodGet, "/api/habits", nil, &habits); err != nil {
		return nil, err
	}
	return habits, nil
}

func (c *Client) CreateHabit(ctx context.Context, fields *hb.HabitFields) (*hb.Habit, error) {
	var habit hb.Habit
	if err := c.doAuthed(ctx, http.MethodPost, "/api/habits", fields, &habit); err != nil {
		return nil, err
	}
	return &habit, nil
}

func (c *Client) UpdateHabit(ctx context.Context, habitID string, fields *hb.HabitFields) (*hb.Habit, error) {
	var habit hb.Habit
	if err := c.doAuthed(ctx, http.MethodPut, "/api/habits/"+url.PathEscape(habitID), fields, &habit); err != nil {
		return nil, err
	}
	return &habit, nil
}

func (c *Client) DeleteHabit(ctx context.Context, habitID string) error {
	return c.doAuthed(ctx, http.MethodDelete, "/api/habits/"+url.PathEscape(habitID), nil, nil)
}

// =============================================================================
// Plumbing
// =============================================================================

// doAuthed fails fast without a session and drops the stored session when
// the server rejects it
func (c *Client) doAuthed(ctx context.Context, method, path string, body, out any) error {
	if !c.IsLoggedIn() {
		return ErrNotLoggedIn
	}
	err := c.do(ctx, method, path, body, out)
	if IsStatus(err, http.StatusUnauthorized) {
		if logoutErr := c.Logout(); logoutErr != nil {
			return errors.Join(err, logoutErr)
		}
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var msg hb.MessageResponse
		if json.Unmarshal(data, &msg) == nil {
			apiErr.Message = msg.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("invalid response from server: %w", err)
		}
	}
	return nil
}
