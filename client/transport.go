package client

import (
	"net/http"
)

// AuthTransport wraps an http.RoundTripper to add Authorization headers
type AuthTransport struct {
	Base http.RoundTripper

	// TokenSource returns the token to send, or "" to send none
	TokenSource func() (string, error)
}

// RoundTrip implements http.RoundTripper
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.TokenSource != nil {
		token, err := t.TokenSource()
		if err != nil {
			return nil, err
		}
		if token != "" {
			// Clone the request to avoid mutating the original
			req2 := req.Clone(req.Context())
			req2.Header.Set("Authorization", "Bearer "+token)
			req = req2
		}
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	return base.RoundTrip(req)
}

// NewAuthTransport creates an AuthTransport that always sends token
func NewAuthTransport(base http.RoundTripper, token string) *AuthTransport {
	return &AuthTransport{
		Base:        base,
		TokenSource: func() (string, error) { return token, nil },
	}
}
