package habitbuddy

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
)

// DefaultCORSOrigins are the front ends allowed to call the API
var DefaultCORSOrigins = []string{
	"http://localhost:5173",
	"https://habbit-buddy.vercel.app",
}

// Server wires the API, auth middleware and optional Google redirect flow
// into one http.Handler.
type Server struct {
	API        *API
	Middleware *Middleware

	// GoogleFlow, if set, is mounted under /api/auth/google/
	GoogleFlow http.Handler

	// CORSOrigins defaults to DefaultCORSOrigins
	CORSOrigins []string
}

// Handler builds the routed, CORS wrapped handler
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(logRequests)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.API.HandleHealth).Methods(http.MethodGet)

	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", s.API.HandleRegister).Methods(http.MethodPost)
	auth.HandleFunc("/login", s.API.HandleLogin).Methods(http.MethodPost)
	auth.HandleFunc("/google", s.API.HandleGoogleLogin).Methods(http.MethodPost)
	auth.Handle("/me", s.Middleware.RequireUser(http.HandlerFunc(s.API.HandleMe))).Methods(http.MethodGet)
	if s.GoogleFlow != nil {
		auth.PathPrefix("/google/").Handler(http.StripPrefix("/api/auth/google", s.GoogleFlow))
	}

	habits := api.PathPrefix("/habits").Subrouter()
	habits.Use(s.Middleware.RequireUser)
	habits.HandleFunc("", s.API.HandleListHabits).Methods(http.MethodGet)
	habits.HandleFunc("", s.API.HandleCreateHabit).Methods(http.MethodPost)
	habits.HandleFunc("/{id}", s.API.HandleUpdateHabit).Methods(http.MethodPut)
	habits.HandleFunc("/{id}", s.API.HandleDeleteHabit).Methods(http.MethodDelete)

	origins := s.CORSOrigins
	if len(origins) == 0 {
		origins = DefaultCORSOrigins
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})(r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("request", "method", r.Method, "path", r.URL.Path,
			"status", rec.status, "duration", time.Since(start))
	})
}
