package habitbuddy

import (
	"context"
	"time"
)

// User is an account that owns habits.
//
// PasswordHash is empty for accounts created through Google sign-in; such
// accounts can never log in with a password.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HasPassword returns true if the user can log in with a password
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Habit is a routine tracked by a single user
type Habit struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Title          string    `json:"title"`
	Icon           string    `json:"icon"`
	Streak         int       `json:"streak"`
	XPValue        int       `json:"xpValue"`
	Completed      bool      `json:"completed"`
	CompletedDates []string  `json:"completedDates"` // YYYY-MM-DD, in insertion order
	Time           string    `json:"time,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// UserStore manages user accounts
type UserStore interface {
	// CreateUser persists a new user, assigning user.ID if it is empty.
	// Returns ErrDuplicateAccount if the email is already registered.
	CreateUser(ctx context.Context, user *User) error

	// GetUserByID returns ErrUserNotFound if there is no such user
	GetUserByID(ctx context.Context, userID string) (*User, error)

	// GetUserByEmail returns ErrUserNotFound if there is no such user
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// HabitStore manages habits. Every method is scoped by the owning user's ID;
// a habit owned by someone else is indistinguishable from a missing one.
type HabitStore interface {
	// ListHabits returns all habits owned by userID
	ListHabits(ctx context.Context, userID string) ([]*Habit, error)

	// CreateHabit persists a new habit, assigning habit.ID if it is empty
	CreateHabit(ctx context.Context, habit *Habit) error

	// UpdateHabit applies the supplied fields to the habit matching both
	// habitID and userID. Returns ErrHabitNotFound if there is no match.
	UpdateHabit(ctx context.Context, userID, habitID string, fields *HabitFields) (*Habit, error)

	// DeleteHabit removes the habit matching both habitID and userID.
	// Returns ErrHabitNotFound if there is no match.
	DeleteHabit(ctx context.Context, userID, habitID string) error
}

// Store is a complete credential store backend
type Store interface {
	UserStore
	HabitStore

	// Ping reports whether the backend is reachable
	Ping(ctx context.Context) error

	// Close releases the backend's connections
	Close(ctx context.Context) error
}
