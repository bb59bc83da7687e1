package habitbuddy

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is how long a session token stays valid. There is no
// refresh: once it expires the client logs in again.
const DefaultTokenTTL = 7 * 24 * time.Hour

// TokenIssuer mints session tokens
type TokenIssuer interface {
	IssueToken(userID string) (token string, expiresAt time.Time, err error)
}

// TokenVerifier checks session tokens and returns the user they were issued for
type TokenVerifier interface {
	VerifyToken(token string) (userID string, err error)
}

// SessionTokens issues and verifies HS256 signed JWTs
type SessionTokens struct {
	secret []byte

	// Issuer is set as the "iss" claim and checked on verify if non-empty
	Issuer string

	TTL time.Duration

	// Now defaults to time.Now
	Now func() time.Time
}

// NewSessionTokens creates a SessionTokens signing with secret
func NewSessionTokens(secret, issuer string, ttl time.Duration) (*SessionTokens, error) {
	if secret == "" {
		return nil, errors.New("session token secret must not be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &SessionTokens{
		secret: []byte(secret),
		Issuer: issuer,
		TTL:    ttl,
	}, nil
}

func (s *SessionTokens) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// IssueToken creates a signed token for userID
func (s *SessionTokens) IssueToken(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("cannot issue token without a user id")
	}
	now := s.now()
	expiresAt := now.Add(s.TTL)

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    s.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, expiresAt, nil
}

// VerifyToken validates the signature and expiry of tokenString and returns
// its subject. All failures wrap ErrInvalidToken.
func (s *SessionTokens) VerifyToken(tokenString string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{
			jwt.SigningMethodHS256.Alg(),
			jwt.SigningMethodHS384.Alg(),
			jwt.SigningMethodHS512.Alg(),
		}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.Issuer))
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}
