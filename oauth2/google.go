package oauth2

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/alexedwards/scs/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	hb "github.com/panyam/habitbuddy"
)

const sessionKeyState = "oauthState"

// HandleIdentityFunc completes a login for verified claims
type HandleIdentityFunc func(ctx context.Context, claims *hb.IdentityClaims) (*hb.AuthResult, error)

// GoogleOAuth2 runs the authorization code flow against Google.
//
//	GET /start     redirects to Google's consent screen
//	GET /callback  exchanges the code, verifies the returned ID token and
//	               responds with {user, token}
//
// The anti-CSRF state lives in a server side session.
type GoogleOAuth2 struct {
	Config         oauth2.Config
	Verifier       hb.IdentityVerifier
	Sessions       *scs.SessionManager
	HandleIdentity HandleIdentityFunc

	mux *http.ServeMux
}

// NewGoogleOAuth2 creates the flow. Empty arguments fall back to
// $GOOGLE_CLIENT_ID, $GOOGLE_CLIENT_SECRET and $GOOGLE_CALLBACK_URL.
func NewGoogleOAuth2(clientId, clientSecret, callbackUrl string, verifier hb.IdentityVerifier, handleIdentity HandleIdentityFunc) *GoogleOAuth2 {
	if clientId == "" {
		clientId = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}
	if callbackUrl == "" {
		callbackUrl = os.Getenv("GOOGLE_CALLBACK_URL")
	}

	sessions := scs.New()
	sessions.Cookie.Name = "habitbuddy_oauth"
	sessions.Cookie.HttpOnly = true
	sessions.Cookie.SameSite = http.SameSiteLaxMode

	out := &GoogleOAuth2{
		Config: oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			RedirectURL:  callbackUrl,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		Verifier:       verifier,
		Sessions:       sessions,
		HandleIdentity: handleIdentity,
		mux:            http.NewServeMux(),
	}
	out.mux.HandleFunc("/start", out.handleStart)
	out.mux.HandleFunc("/callback", out.handleCallback)
	return out
}

// ServeHTTP serves /start and /callback relative to where the flow is mounted
func (g *GoogleOAuth2) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.Sessions.LoadAndSave(g.mux).ServeHTTP(w, r)
}

func (g *GoogleOAuth2) handleStart(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Google authentication failed")
		return
	}
	g.Sessions.Put(r.Context(), sessionKeyState, state)
	http.Redirect(w, r, g.Config.AuthCodeURL(state), http.StatusFound)
}

func (g *GoogleOAuth2) handleCallback(w http.ResponseWriter, r *http.Request) {
	// single use: a replayed callback finds no state
	expected := g.Sessions.PopString(r.Context(), sessionKeyState)
	if expected == "" || r.FormValue("state") != expected {
		slog.Warn("oauth state mismatch")
		writeMessage(w, http.StatusBadRequest, "Invalid oauth state")
		return
	}
	if errCode := r.FormValue("error"); errCode != "" {
		slog.Info("google consent denied", "error", errCode)
		writeMessage(w, http.StatusUnauthorized, "Google authentication failed")
		return
	}

	token, err := g.Config.Exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		slog.Warn("oauth code exchange failed", "error", err)
		writeMessage(w, http.StatusUnauthorized, "Google authentication failed")
		return
	}
	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken == "" {
		slog.Warn("token response has no id_token")
		writeMessage(w, http.StatusUnauthorized, "Google authentication failed")
		return
	}

	claims, err := g.Verifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		slog.Info("identity token rejected", "error", err)
		writeMessage(w, http.StatusUnauthorized, "Google authentication failed")
		return
	}

	result, err := g.HandleIdentity(r.Context(), claims)
	if err != nil {
		if errors.Is(err, hb.ErrInvalidIdentityToken) {
			writeMessage(w, http.StatusUnauthorized, "Google authentication failed")
			return
		}
		slog.Error("google login failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Google authentication failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, hb.MessageResponse{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
