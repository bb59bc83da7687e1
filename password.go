package habitbuddy

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher produces and checks one-way password digests
type PasswordHasher interface {
	Hash(password string) (string, error)

	// Verify returns false for an empty digest so that password-less
	// accounts never match.
	Verify(password, digest string) bool
}

// BcryptHasher hashes passwords with bcrypt
type BcryptHasher struct {
	// Cost defaults to bcrypt.DefaultCost
	Cost int
}

func (h *BcryptHasher) cost() int {
	if h == nil || h.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return h.Cost
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost())
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

func (h *BcryptHasher) Verify(password, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
