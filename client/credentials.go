// Package client is a Go client for the habitbuddy HTTP API. It keeps the
// session token in a CredentialStore so command line tools stay logged in
// between runs.
package client

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ServerCredential holds the session for a single server
type ServerCredential struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id,omitempty"`
	UserEmail string    `json:"user_email,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired returns true if the token has expired. A credential without a
// known expiry never expires locally; the server still decides.
func (c *ServerCredential) IsExpired() bool {
	return !c.ExpiresAt.IsZero() && time.Now().After(c.ExpiresAt)
}

// NewServerCredential builds a credential for token, reading the expiry
// from the token's exp claim when present. The signature is not checked
// here; only the server can do that.
func NewServerCredential(token, userID, email string) *ServerCredential {
	cred := &ServerCredential{
		Token:     token,
		UserID:    userID,
		UserEmail: email,
		CreatedAt: time.Now(),
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil && claims.ExpiresAt != nil {
		cred.ExpiresAt = claims.ExpiresAt.Time
	}
	return cred
}

// CredentialStore defines the interface for storing and retrieving credentials
type CredentialStore interface {
	// GetCredential retrieves a credential for a server URL
	// Returns nil, nil if no credential exists for the server
	GetCredential(serverURL string) (*ServerCredential, error)

	// SetCredential stores a credential for a server URL
	SetCredential(serverURL string, cred *ServerCredential) error

	// RemoveCredential removes a credential for a server URL
	RemoveCredential(serverURL string) error

	// Save persists any pending changes (for stores that batch writes)
	Save() error
}

// MemoryCredentialStore keeps credentials for the life of the process
type MemoryCredentialStore struct {
	servers map[string]*ServerCredential
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{servers: make(map[string]*ServerCredential)}
}

func (m *MemoryCredentialStore) GetCredential(serverURL string) (*ServerCredential, error) {
	return m.servers[serverURL], nil
}

func (m *MemoryCredentialStore) SetCredential(serverURL string, cred *ServerCredential) error {
	m.servers[serverURL] = cred
	return nil
}

func (m *MemoryCredentialStore) RemoveCredential(serverURL string) error {
	delete(m.servers, serverURL)
	return nil
}

func (m *MemoryCredentialStore) Save() error { return nil }
