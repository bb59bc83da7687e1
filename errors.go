package habitbuddy

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned when a request carries no usable identity
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidToken is returned for malformed, forged or expired session tokens
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidCredentials covers both unknown emails and wrong passwords
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDuplicateAccount is returned when registering an email that already exists
	ErrDuplicateAccount = errors.New("user already exists")

	// ErrInvalidIdentityToken is returned when a Google ID token fails verification
	ErrInvalidIdentityToken = errors.New("invalid identity token")

	ErrUserNotFound  = errors.New("user not found")
	ErrHabitNotFound = errors.New("habit not found")
)

// ValidationError describes a rejected input field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for the given field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
