package client_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	hb "github.com/panyam/habitbuddy"
	"github.com/panyam/habitbuddy/client"
	"github.com/panyam/habitbuddy/stores/fs"
)

// fakeIdentity accepts "google:<email>" as an ID token
type fakeIdentity struct{}

func (fakeIdentity) Verify(ctx context.Context, idToken string) (*hb.IdentityClaims, error) {
	email, ok := strings.CutPrefix(idToken, "google:")
	if !ok {
		return nil, fmt.Errorf("%w: unexpected token", hb.ErrInvalidIdentityToken)
	}
	return &hb.IdentityClaims{Subject: "sub-" + email, Email: email, EmailVerified: true, Name: "Google " + email}, nil
}

func newTestServer(t *testing.T, ttl time.Duration) *httptest.Server {
	t.Helper()
	store, err := fs.New(t.TempDir())
	require.NoError(t, err)
	tokens, err := hb.NewSessionTokens("client-test-secret", "habitbuddy", ttl)
	require.NoError(t, err)

	srv := &hb.Server{
		API: &hb.API{
			Auth: &hb.AuthService{
				Users:    store,
				Hasher:   &hb.BcryptHasher{Cost: bcrypt.MinCost},
				Tokens:   tokens,
				Identity: fakeIdentity{},
			},
			Habits: &hb.HabitService{Habits: store},
			DB:     store,
		},
		Middleware: &hb.Middleware{Verifier: tokens},
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestClientHealth(t *testing.T) {
	ts := newTestServer(t, time.Hour)
	c := client.NewClient(ts.URL, nil)

	health, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "connected", health.DB)
}

func TestClientRegisterAndHabits(t *testing.T) {
	ts := newTestServer(t, time.Hour)
	ctx := context.Background()
	c := client.NewClient(ts.URL+"/ignored/path", nil)
	assert.Equal(t, ts.URL, c.ServerURL())
	assert.False(t, c.IsLoggedIn())

	result, err := c.Register(ctx, "a@x.com", "pw1", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", result.User.Email)
	assert.NotEmpty(t, result.Token)
	assert.True(t, c.IsLoggedIn())

	cred, err := c.Credential()
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, cred.UserID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), cred.ExpiresAt, time.Minute)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, me.ID)

	habits, err := c.ListHabits(ctx)
	require.NoError(t, err)
	assert.Empty(t, habits)

	habit, err := c.CreateHabit(ctx, &hb.HabitFields{Title: strPtr("Run")})
	require.NoError(t, err)
	assert.Equal(t, "Run", habit.Title)
	assert.Equal(t, hb.DefaultHabitIcon, habit.Icon)
	assert.Equal(t, hb.DefaultHabitXPValue, habit.XPValue)
	assert.Equal(t, result.User.ID, habit.UserID)

	updated, err := c.UpdateHabit(ctx, habit.ID, &hb.HabitFields{Streak: intPtr(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Streak)
	assert.Equal(t, "Run", updated.Title)

	require.NoError(t, c.DeleteHabit(ctx, habit.ID))
	err = c.DeleteHabit(ctx, habit.ID)
	require.Error(t, err)
	assert.True(t, client.IsStatus(err, http.StatusNotFound))
	assert.Contains(t, err.Error(), "Habit not found")
}

func TestClientLoginErrors(t *testing.T) {
	ts := newTestServer(t, time.Hour)
	ctx := context.Background()
	c := client.NewClient(ts.URL, nil)

	_, err := c.Register(ctx, "a@x.com", "pw1", "Alice")
	require.NoError(t, err)
	require.NoError(t, c.Logout())

	_, err = c.Register(ctx, "a@x.com", "other", "Again")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "User already exists", apiErr.Message)

	_, err = c.Login(ctx, "a@x.com", "wrong")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
	assert.False(t, c.IsLoggedIn())

	_, err = c.Login(ctx, "a@x.com", "pw1")
	require.NoError(t, err)
	assert.True(t, c.IsLoggedIn())
}

func TestClientGoogleLogin(t *testing.T) {
	ts := newTestServer(t, time.Hour)
	ctx := context.Background()
	c := client.NewClient(ts.URL, nil)

	result, err := c.GoogleLogin(ctx, "google:g@x.com")
	require.NoError(t, err)
	assert.Equal(t, "g@x.com", result.User.Email)

	again, err := c.GoogleLogin(ctx, "google:g@x.com")
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, again.User.ID, "second sign-in reuses the account")

	_, err = c.GoogleLogin(ctx, "forged")
	assert.True(t, client.IsStatus(err, http.StatusUnauthorized))
}

func TestClientNotLoggedIn(t *testing.T) {
	ts := newTestServer(t, time.Hour)
	c := client.NewClient(ts.URL, nil)

	_, err := c.ListHabits(context.Background())
	assert.ErrorIs(t, err, client.ErrNotLoggedIn)
}

func TestClientDropsRejectedSession(t *testing.T) {
	ts := newTestServer(t, time.Hour)
	c := client.NewClient(ts.URL, nil)
	require.NoError(t, c.SetToken("not-a-real-token", nil))
	require.True(t, c.IsLoggedIn())

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.True(t, client.IsStatus(err, http.StatusUnauthorized))
	assert.False(t, c.IsLoggedIn(), "rejected session is forgotten")
}

func TestClientExpiredSession(t *testing.T) {
	ts := newTestServer(t, time.Second)
	ctx := context.Background()
	c := client.NewClient(ts.URL, nil)

	_, err := c.Register(ctx, "a@x.com", "pw1", "Alice")
	require.NoError(t, err)

	cred, err := c.Credential()
	require.NoError(t, err)
	cred.ExpiresAt = time.Now().Add(-time.Minute)

	assert.False(t, c.IsLoggedIn())
	_, err = c.ListHabits(ctx)
	assert.ErrorIs(t, err, client.ErrNotLoggedIn)
}

func TestAuthTransport(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	defer ts.Close()

	httpClient := &http.Client{Transport: client.NewAuthTransport(nil, "abc")}
	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)
	resp, err := httpClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer abc", got)
	assert.Empty(t, req.Header.Get("Authorization"), "original request is not mutated")
}
