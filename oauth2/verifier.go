// Package oauth2 verifies Google identities, either from an ID token posted
// by the front end or through the server side authorization code flow.
package oauth2

import (
	"context"
	"errors"
	"fmt"
	"os"

	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"

	hb "github.com/panyam/habitbuddy"
)

// GoogleIssuers are the accepted "iss" values on Google ID tokens
var GoogleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

// ValidateFunc checks the signature, audience and expiry of an ID token
type ValidateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// GoogleVerifier implements habitbuddy.IdentityVerifier for Google ID tokens
type GoogleVerifier struct {
	ClientID string
	validate ValidateFunc
}

// NewGoogleVerifier creates a verifier that fetches Google's signing keys.
// clientID falls back to $GOOGLE_CLIENT_ID.
func NewGoogleVerifier(ctx context.Context, clientID string, opts ...option.ClientOption) (*GoogleVerifier, error) {
	if clientID == "" {
		clientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if clientID == "" {
		return nil, errors.New("google client id is required")
	}
	validator, err := idtoken.NewValidator(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create id token validator: %w", err)
	}
	return &GoogleVerifier{ClientID: clientID, validate: validator.Validate}, nil
}

// NewGoogleVerifierWithValidator creates a verifier around a custom
// validation function, for tests and alternative key sources.
func NewGoogleVerifierWithValidator(clientID string, validate ValidateFunc) *GoogleVerifier {
	return &GoogleVerifier{ClientID: clientID, validate: validate}
}

// Verify validates idToken against ClientID and returns its claims
func (g *GoogleVerifier) Verify(ctx context.Context, idToken string) (*hb.IdentityClaims, error) {
	payload, err := g.validate(ctx, idToken, g.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", hb.ErrInvalidIdentityToken, err)
	}
	if !validIssuer(payload.Issuer) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", hb.ErrInvalidIdentityToken, payload.Issuer)
	}
	if payload.Audience != g.ClientID {
		return nil, fmt.Errorf("%w: audience mismatch", hb.ErrInvalidIdentityToken)
	}
	claims := claimsFromPayload(payload)
	if claims.Email == "" {
		return nil, fmt.Errorf("%w: token has no email", hb.ErrInvalidIdentityToken)
	}
	return claims, nil
}

func validIssuer(iss string) bool {
	for _, i := range GoogleIssuers {
		if iss == i {
			return true
		}
	}
	return false
}

func claimsFromPayload(payload *idtoken.Payload) *hb.IdentityClaims {
	claims := &hb.IdentityClaims{Subject: payload.Subject}
	claims.Email, _ = payload.Claims["email"].(string)
	claims.Name, _ = payload.Claims["name"].(string)
	claims.Picture, _ = payload.Claims["picture"].(string)
	switch v := payload.Claims["email_verified"].(type) {
	case bool:
		claims.EmailVerified = v
	case string:
		claims.EmailVerified = v == "true"
	}
	return claims
}
