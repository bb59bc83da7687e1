package habitbuddy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// dummyPassword is hashed once per service so that logins for unknown or
// password-less accounts cost one hash comparison like any other login
const dummyPassword = "habitbuddy-no-such-account"

// IdentityClaims are the verified claims of an external identity token
type IdentityClaims struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// IdentityVerifier validates identity tokens issued by a trusted OAuth
// provider. Failures wrap ErrInvalidIdentityToken.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*IdentityClaims, error)
}

// AuthResult is returned by every successful login
type AuthResult struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// AuthService implements registration and the login flows
type AuthService struct {
	Users    UserStore
	Hasher   PasswordHasher
	Tokens   TokenIssuer
	Identity IdentityVerifier

	dummyOnce   sync.Once
	dummyDigest string

	// Now defaults to time.Now
	Now func() time.Time
}

func (a *AuthService) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// Register creates a password account and logs it in
func (a *AuthService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, NewValidationError("email", "is required")
	}
	if password == "" {
		return nil, NewValidationError("password", "is required")
	}

	if _, err := a.Users.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateAccount
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	digest, err := a.Hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	user := &User{
		Email:        email,
		Name:         name,
		PasswordHash: digest,
		CreatedAt:    a.now(),
	}
	// a concurrent registration can still win the race; the store reports
	// that as ErrDuplicateAccount
	if err := a.Users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	slog.Info("registered user", "user_id", user.ID)
	return a.issue(user)
}

// Login checks an email and password. Unknown emails, password-less accounts
// and wrong passwords all return ErrInvalidCredentials.
func (a *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := a.Users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, ErrUserNotFound) {
		user = nil
	} else if err != nil {
		return nil, err
	}
	if user == nil || !user.HasPassword() {
		a.Hasher.Verify(password, a.dummyHash())
		return nil, ErrInvalidCredentials
	}
	if !a.Hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return a.issue(user)
}

func (a *AuthService) dummyHash() string {
	a.dummyOnce.Do(func() {
		digest, err := a.Hasher.Hash(dummyPassword)
		if err != nil {
			slog.Warn("failed to hash dummy password", "error", err)
			return
		}
		a.dummyDigest = digest
	})
	return a.dummyDigest
}

// GoogleLogin verifies a Google ID token and logs in the matching account
func (a *AuthService) GoogleLogin(ctx context.Context, idToken string) (*AuthResult, error) {
	if a.Identity == nil {
		return nil, fmt.Errorf("%w: no identity verifier configured", ErrInvalidIdentityToken)
	}
	if idToken == "" {
		return nil, fmt.Errorf("%w: missing token", ErrInvalidIdentityToken)
	}
	claims, err := a.Identity.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}
	return a.LoginWithIdentity(ctx, claims)
}

// LoginWithIdentity logs in the account owning the verified email, creating
// a password-less account on first sight. The provider's email claim is
// trusted as is; no confirmation round trip happens here.
func (a *AuthService) LoginWithIdentity(ctx context.Context, claims *IdentityClaims) (*AuthResult, error) {
	if claims == nil || claims.Email == "" {
		return nil, fmt.Errorf("%w: no email claim", ErrInvalidIdentityToken)
	}

	user, err := a.Users.GetUserByEmail(ctx, claims.Email)
	if errors.Is(err, ErrUserNotFound) {
		user = &User{
			Email:     claims.Email,
			Name:      claims.Name,
			CreatedAt: a.now(),
		}
		err = a.Users.CreateUser(ctx, user)
		if errors.Is(err, ErrDuplicateAccount) {
			// lost a race with another first login for the same email
			user, err = a.Users.GetUserByEmail(ctx, claims.Email)
		} else if err == nil {
			slog.Info("created user from google identity", "user_id", user.ID)
		}
	}
	if err != nil {
		return nil, err
	}
	return a.issue(user)
}

// CurrentUser returns the user bound to ctx by the auth middleware
func (a *AuthService) CurrentUser(ctx context.Context) (*User, error) {
	userID := GetUserIDFromContext(ctx)
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	return a.Users.GetUserByID(ctx, userID)
}

func (a *AuthService) issue(user *User) (*AuthResult, error) {
	token, _, err := a.Tokens.IssueToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}
