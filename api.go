package habitbuddy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Pinger reports backend reachability for the health endpoint
type Pinger interface {
	Ping(ctx context.Context) error
}

// API serves the JSON endpoints
type API struct {
	Auth   *AuthService
	Habits *HabitService
	DB     Pinger

	// HealthTimeout bounds the DB ping in the health check. Defaults to 2s.
	HealthTimeout time.Duration
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleLoginRequest struct {
	Token string `json:"token"`
}

// MessageResponse is the body of every error and of acknowledgements
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the body of GET /api/health
type HealthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db"`
}

// HandleHealth handles GET /api/health
func (a *API) HandleHealth(w http.ResponseWriter, r *http.Request) {
	timeout := a.HealthTimeout
	if timeout == 0 {
		timeout = 2 * time.Second
	}
	db := "disconnected"
	if a.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := a.DB.Ping(ctx); err == nil {
			db = "connected"
		} else {
			slog.Warn("health check ping failed", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", DB: db})
}

// HandleRegister handles POST /api/auth/register
func (a *API) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := a.Auth.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		handleError(w, r, err, "Registration failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleLogin handles POST /api/auth/login
func (a *API) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := a.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleError(w, r, err, "Login failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleGoogleLogin handles POST /api/auth/google
func (a *API) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req googleLoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := a.Auth.GoogleLogin(r.Context(), req.Token)
	if err != nil {
		handleError(w, r, err, "Google authentication failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleMe handles GET /api/auth/me
func (a *API) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := a.Auth.CurrentUser(r.Context())
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// token outlived its account
			err = ErrUnauthenticated
		}
		handleError(w, r, err, "Error fetching user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleListHabits handles GET /api/habits
func (a *API) HandleListHabits(w http.ResponseWriter, r *http.Request) {
	habits, err := a.Habits.List(r.Context())
	if err != nil {
		handleError(w, r, err, "Error fetching habits")
		return
	}
	writeJSON(w, http.StatusOK, habits)
}

// HandleCreateHabit handles POST /api/habits
func (a *API) HandleCreateHabit(w http.ResponseWriter, r *http.Request) {
	var fields HabitFields
	if !decodeBody(w, r, &fields) {
		return
	}
	habit, err := a.Habits.Create(r.Context(), &fields)
	if err != nil {
		handleError(w, r, err, "Error adding habit")
		return
	}
	writeJSON(w, http.StatusCreated, habit)
}

// HandleUpdateHabit handles PUT /api/habits/{id}
func (a *API) HandleUpdateHabit(w http.ResponseWriter, r *http.Request) {
	var fields HabitFields
	if !decodeBody(w, r, &fields) {
		return
	}
	habit, err := a.Habits.Update(r.Context(), mux.Vars(r)["id"], &fields)
	if err != nil {
		handleError(w, r, err, "Error updating habit")
		return
	}
	writeJSON(w, http.StatusOK, habit)
}

// HandleDeleteHabit handles DELETE /api/habits/{id}
func (a *API) HandleDeleteHabit(w http.ResponseWriter, r *http.Request) {
	if err := a.Habits.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		handleError(w, r, err, "Error deleting habit")
		return
	}
	writeMessage(w, http.StatusOK, "Habit deleted")
}

// decodeBody reads a JSON body into v, writing a 400 and returning false on failure
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// handleError maps domain errors onto status codes. Anything unexpected is
// logged and reported with the route's generic message only.
func handleError(w http.ResponseWriter, r *http.Request, err error, internalMessage string) {
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeMessage(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, ErrDuplicateAccount):
		writeMessage(w, http.StatusBadRequest, "User already exists")
	case errors.Is(err, ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, ErrInvalidIdentityToken):
		slog.Info("identity token rejected", "error", err)
		writeMessage(w, http.StatusUnauthorized, internalMessage)
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidToken):
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, ErrHabitNotFound):
		writeMessage(w, http.StatusNotFound, "Habit not found")
	default:
		slog.Error(internalMessage, "method", r.Method, "path", r.URL.Path,
			"user_id", GetUserIDFromContext(r.Context()), "error", err)
		writeMessage(w, http.StatusInternalServerError, internalMessage)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, MessageResponse{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}
