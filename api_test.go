package habitbuddy_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	hb "github.com/panyam/habitbuddy"
)

func TestHabitScenario(t *testing.T) {
	env := setupEnv(t)

	a := env.register(t, "a@x.com", "p1", "A")
	if a.Token == "" || a.User.ID == "" {
		t.Fatalf("unexpected register result: %+v", a)
	}

	rr := env.do(t, http.MethodPost, "/api/habits", a.Token, map[string]any{"title": "Run"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Create: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created hb.Habit
	decode(t, rr, &created)
	if created.Streak != 0 || created.XPValue != 20 || created.Completed || created.Icon != "⭐" {
		t.Errorf("defaults not applied: %+v", created)
	}
	if created.UserID != a.User.ID {
		t.Errorf("owner = %q, want %q", created.UserID, a.User.ID)
	}

	rr = env.do(t, http.MethodGet, "/api/habits", a.Token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("List: expected 200, got %d", rr.Code)
	}
	var habits []hb.Habit
	decode(t, rr, &habits)
	if len(habits) != 1 || habits[0].ID != created.ID {
		t.Errorf("expected the created habit, got %+v", habits)
	}

	b := env.register(t, "b@x.com", "p2", "B")
	rr = env.do(t, http.MethodGet, "/api/habits", b.Token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("List: expected 200, got %d", rr.Code)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
		t.Errorf("expected empty JSON array for another user, got %s", body)
	}
}

func TestHabitOwnershipCannotBeSpoofed(t *testing.T) {
	env := setupEnv(t)
	a := env.register(t, "a@x.com", "p1", "A")
	b := env.register(t, "b@x.com", "p2", "B")

	// owner in the payload is ignored on create
	rr := env.do(t, http.MethodPost, "/api/habits", a.Token, map[string]any{
		"title": "Run", "userId": b.User.ID,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Create: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var habit hb.Habit
	decode(t, rr, &habit)
	if habit.UserID != a.User.ID {
		t.Fatalf("habit owned by %q, want caller %q", habit.UserID, a.User.ID)
	}

	// and on update
	rr = env.do(t, http.MethodPut, "/api/habits/"+habit.ID, a.Token, map[string]any{
		"streak": 4, "userId": b.User.ID,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Update: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var updated hb.Habit
	decode(t, rr, &updated)
	if updated.UserID != a.User.ID || updated.Streak != 4 || updated.Title != "Run" {
		t.Errorf("unexpected update result: %+v", updated)
	}

	// B cannot touch A's habit, and gets the same answer as for a missing id
	for _, id := range []string{habit.ID, "no-such-habit"} {
		rr = env.do(t, http.MethodPut, "/api/habits/"+id, b.Token, map[string]any{"title": "mine"})
		if rr.Code != http.StatusNotFound || message(t, rr) != "Habit not found" {
			t.Errorf("Update %s as B: expected 404 Habit not found, got %d", id, rr.Code)
		}
		rr = env.do(t, http.MethodDelete, "/api/habits/"+id, b.Token, nil)
		if rr.Code != http.StatusNotFound || message(t, rr) != "Habit not found" {
			t.Errorf("Delete %s as B: expected 404 Habit not found, got %d", id, rr.Code)
		}
	}

	rr = env.do(t, http.MethodGet, "/api/habits", b.Token, nil)
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("B should see no habits, got %s", rr.Body.String())
	}

	rr = env.do(t, http.MethodDelete, "/api/habits/"+habit.ID, a.Token, nil)
	if rr.Code != http.StatusOK || message(t, rr) != "Habit deleted" {
		t.Errorf("Delete as owner: got %d", rr.Code)
	}
}

func TestHabitValidationOverHTTP(t *testing.T) {
	env := setupEnv(t)
	a := env.register(t, "a@x.com", "p1", "A")

	tests := []struct {
		name   string
		method string
		body   any
	}{
		{"missing title", http.MethodPost, map[string]any{"icon": "x"}},
		{"negative streak", http.MethodPost, map[string]any{"title": "x", "streak": -1}},
		{"bad date", http.MethodPost, map[string]any{"title": "x", "completedDates": []string{"yesterday"}}},
		{"malformed json", http.MethodPost, "{not json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, tt.method, "/api/habits", a.Token, tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
			if message(t, rr) == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestAuthEndpoints(t *testing.T) {
	env := setupEnv(t)
	a := env.register(t, "a@x.com", "p1", "A")

	rr := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "a@x.com", "password": "x"})
	if rr.Code != http.StatusBadRequest || message(t, rr) != "User already exists" {
		t.Errorf("duplicate register: got %d", rr.Code)
	}

	// wrong password and unknown email produce identical responses
	wrong := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@x.com", "password": "bad"})
	unknown := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "z@x.com", "password": "p1"})
	if wrong.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Errorf("expected 401s, got %d and %d", wrong.Code, unknown.Code)
	}
	if wrong.Body.String() != unknown.Body.String() {
		t.Errorf("login failures differ: %q vs %q", wrong.Body.String(), unknown.Body.String())
	}

	rr = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@x.com", "password": "p1"})
	if rr.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "password") || strings.Contains(rr.Body.String(), "$2a$") {
		t.Errorf("password hash leaked: %s", rr.Body.String())
	}

	rr = env.do(t, http.MethodGet, "/api/auth/me", a.Token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", rr.Code)
	}
	var me hb.User
	decode(t, rr, &me)
	if me.ID != a.User.ID || me.Email != "a@x.com" {
		t.Errorf("me = %+v", me)
	}

	rr = env.do(t, http.MethodGet, "/api/auth/me", "", nil)
	if rr.Code != http.StatusUnauthorized || message(t, rr) != "No token provided" {
		t.Errorf("me without token: got %d", rr.Code)
	}

	// a valid token for an account that no longer exists
	ghost, _, _ := env.Tokens.IssueToken("deleted-user")
	rr = env.do(t, http.MethodGet, "/api/auth/me", ghost, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("me for missing user: expected 401, got %d", rr.Code)
	}

	rr = env.do(t, http.MethodPost, "/api/auth/google", "", map[string]string{"token": "google:g@x.com"})
	if rr.Code != http.StatusOK {
		t.Errorf("google login: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	rr = env.do(t, http.MethodPost, "/api/auth/google", "", map[string]string{"token": "forged"})
	if rr.Code != http.StatusUnauthorized || message(t, rr) != "Google authentication failed" {
		t.Errorf("forged google token: got %d", rr.Code)
	}
	rr = env.do(t, http.MethodGet, "/api/auth/google/start", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("redirect flow not configured: expected 404, got %d", rr.Code)
	}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	env := setupEnv(t)
	rr := env.do(t, http.MethodGet, "/api/health", "", nil)
	var health hb.HealthResponse
	decode(t, rr, &health)
	if rr.Code != http.StatusOK || health.Status != "ok" || health.DB != "connected" {
		t.Errorf("health = %d %+v", rr.Code, health)
	}

	env.Server.API.DB = fakePinger{err: errors.New("connection refused")}
	rr = env.do(t, http.MethodGet, "/api/health", "", nil)
	decode(t, rr, &health)
	if rr.Code != http.StatusOK || health.DB != "disconnected" {
		t.Errorf("health with failing db = %d %+v", rr.Code, health)
	}
}

// brokenHabits fails every call with an internal error
type brokenHabits struct{}

var errDiskOnFire = errors.New("disk on fire at /var/lib/habits")

func (brokenHabits) ListHabits(ctx context.Context, userID string) ([]*hb.Habit, error) {
	return nil, errDiskOnFire
}
func (brokenHabits) CreateHabit(ctx context.Context, habit *hb.Habit) error { return errDiskOnFire }
func (brokenHabits) UpdateHabit(ctx context.Context, userID, habitID string, fields *hb.HabitFields) (*hb.Habit, error) {
	return nil, errDiskOnFire
}
func (brokenHabits) DeleteHabit(ctx context.Context, userID, habitID string) error {
	return errDiskOnFire
}

func TestInternalErrorsStayInternal(t *testing.T) {
	env := setupEnv(t)
	a := env.register(t, "a@x.com", "p1", "A")
	env.Server.API.Habits = &hb.HabitService{Habits: brokenHabits{}}

	tests := []struct {
		method, path string
		body         any
		want         string
	}{
		{http.MethodGet, "/api/habits", nil, "Error fetching habits"},
		{http.MethodPost, "/api/habits", map[string]any{"title": "x"}, "Error adding habit"},
		{http.MethodPut, "/api/habits/h1", map[string]any{"title": "x"}, "Error updating habit"},
		{http.MethodDelete, "/api/habits/h1", nil, "Error deleting habit"},
	}
	for _, tt := range tests {
		rr := env.do(t, tt.method, tt.path, a.Token, tt.body)
		if rr.Code != http.StatusInternalServerError {
			t.Errorf("%s %s: expected 500, got %d", tt.method, tt.path, rr.Code)
			continue
		}
		if got := message(t, rr); got != tt.want {
			t.Errorf("%s %s: message %q, want %q", tt.method, tt.path, got, tt.want)
		}
	}
}

func TestCORS(t *testing.T) {
	env := setupEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/habits", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rr := httptest.NewRecorder()
	env.Handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if rr.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("expected credentials to be allowed")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	env.Handler.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unlisted origin allowed: %q", got)
	}
}
