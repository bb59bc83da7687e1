package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	hb "github.com/panyam/habitbuddy"
	"github.com/panyam/habitbuddy/oauth2"
	"github.com/panyam/habitbuddy/stores"
)

const shutdownTimeout = 10 * time.Second

// ServeCmd runs the HTTP API until interrupted
type ServeCmd struct {
	Port string `help:"Port to listen on. Overrides PORT."`
}

func (s *ServeCmd) Run(g *Globals) error {
	cfg, err := hb.LoadConfig(g.EnvFile...)
	if err != nil {
		return err
	}
	if s.Port != "" {
		cfg.Port = s.Port
	}
	if !g.Debug {
		setupLogging(cfg.LogLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := stores.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close(context.Background())

	tokens, err := hb.NewSessionTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	if err != nil {
		return err
	}
	verifier, err := oauth2.NewGoogleVerifier(ctx, cfg.GoogleClientID)
	if err != nil {
		return fmt.Errorf("failed to create google verifier: %w", err)
	}

	auth := &hb.AuthService{
		Users:    store,
		Hasher:   &hb.BcryptHasher{},
		Tokens:   tokens,
		Identity: verifier,
	}
	server := &hb.Server{
		API: &hb.API{
			Auth:   auth,
			Habits: &hb.HabitService{Habits: store},
			DB:     store,
		},
		Middleware:  &hb.Middleware{Verifier: tokens},
		CORSOrigins: cfg.CORSOrigins,
	}
	if cfg.GoogleRedirectEnabled() {
		server.GoogleFlow = oauth2.NewGoogleOAuth2(cfg.GoogleClientID, cfg.GoogleClientSecret,
			cfg.GoogleCallbackURL, verifier, auth.LoginWithIdentity)
		slog.Info("Google redirect login enabled", "callback", cfg.GoogleCallbackURL)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server running", "port", cfg.Port)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
