// Package habitbuddy is the backend for a personal habit tracker.
//
// It authenticates users with a password or a Google ID token, issues
// session tokens, and serves per-user CRUD over habits.
//
// # Architecture
//
// User: an account identified by an opaque ID and a unique email. Accounts
// created through Google sign-in have no password hash.
//
// Habit: a routine owned by exactly one user. Every habit operation is
// scoped by the owner ID bound to the request; a habit owned by someone else
// looks exactly like one that does not exist.
//
// Session token: an HS256 JWT whose subject is the user ID. Tokens expire
// after DefaultTokenTTL and cannot be refreshed or revoked.
//
// # Basic Usage
//
//	store, _ := stores.Open(ctx, cfg)
//	tokens, _ := habitbuddy.NewSessionTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
//	verifier, _ := oauth2.NewGoogleVerifier(ctx, cfg.GoogleClientID)
//
//	api := &habitbuddy.API{
//	    Auth: &habitbuddy.AuthService{
//	        Users:    store,
//	        Hasher:   &habitbuddy.BcryptHasher{},
//	        Tokens:   tokens,
//	        Identity: verifier,
//	    },
//	    Habits: &habitbuddy.HabitService{Habits: store},
//	    DB:     store,
//	}
//	srv := &habitbuddy.Server{
//	    API:        api,
//	    Middleware: &habitbuddy.Middleware{Verifier: tokens},
//	}
//	http.ListenAndServe(":5001", srv.Handler())
//
// # Store Implementations
//
// The stores directory has backends for MongoDB, Cloud Datastore, GORM and
// plain JSON files. stores.Open picks one from the connection string scheme.
//
// # Security
//
// Passwords are hashed with bcrypt at the default cost. Login failures for
// unknown emails, password-less accounts and wrong passwords are reported
// identically. Google sign-in trusts the verified email claim for account
// linkage.
package habitbuddy
