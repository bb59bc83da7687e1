// Package fs stores users and habits as JSON files. It is meant for
// development and tests; a single process owns the directory.
//
// Layout under StoragePath:
//
//	users/<userID>.json
//	emails/<sha256(email)>.json        email -> user ID index
//	habits/<userID>/<habitID>.json
package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	hb "github.com/panyam/habitbuddy"
)

// User records hold password hashes and are readable by the owner only
const (
	privateFileMode os.FileMode = 0600
	dataFileMode    os.FileMode = 0644
)

// Store implements habitbuddy.Store on the local filesystem
type Store struct {
	StoragePath string
	mu          sync.RWMutex
}

// New creates a Store rooted at storagePath
func New(storagePath string) (*Store, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &Store{StoragePath: storagePath}, nil
}

type emailIndex struct {
	Email  string `json:"email"`
	UserID string `json:"user_id"`
}

// fsUser mirrors hb.User but keeps the password hash on disk
type fsUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (s *Store) userPath(userID string) string {
	return filepath.Join(s.StoragePath, "users", filepath.Base(userID)+".json")
}

func (s *Store) emailPath(email string) string {
	hash := sha256.Sum256([]byte(email))
	return filepath.Join(s.StoragePath, "emails", hex.EncodeToString(hash[:])+".json")
}

func (s *Store) habitDir(userID string) string {
	return filepath.Join(s.StoragePath, "habits", filepath.Base(userID))
}

func (s *Store) habitPath(userID, habitID string) string {
	return filepath.Join(s.habitDir(userID), filepath.Base(habitID)+".json")
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := os.Stat(s.StoragePath)
	return err
}

func (s *Store) Close(ctx context.Context) error { return nil }

// =============================================================================
// Users
// =============================================================================

func (s *Store) CreateUser(ctx context.Context, user *hb.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.emailPath(user.Email)); err == nil {
		return hb.ErrDuplicateAccount
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	record := fsUser{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	}
	if err := writeJSON(s.userPath(user.ID), record, privateFileMode); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	if err := writeJSON(s.emailPath(user.Email), emailIndex{Email: user.Email, UserID: user.ID}, privateFileMode); err != nil {
		os.Remove(s.userPath(user.ID))
		return fmt.Errorf("failed to index user email: %w", err)
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (*hb.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readUser(userID)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*hb.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var idx emailIndex
	if err := readJSON(s.emailPath(email), &idx); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, hb.ErrUserNotFound
		}
		return nil, err
	}
	return s.readUser(idx.UserID)
}

func (s *Store) readUser(userID string) (*hb.User, error) {
	var record fsUser
	if err := readJSON(s.userPath(userID), &record); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, hb.ErrUserNotFound
		}
		return nil, err
	}
	return &hb.User{
		ID:           record.ID,
		Email:        record.Email,
		Name:         record.Name,
		PasswordHash: record.PasswordHash,
		CreatedAt:    record.CreatedAt,
	}, nil
}

// =============================================================================
// Habits
// =============================================================================

func (s *Store) ListHabits(ctx context.Context, userID string) ([]*hb.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.habitDir(userID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*hb.Habit{}, nil
		}
		return nil, err
	}

	habits := make([]*hb.Habit, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		var habit hb.Habit
		if err := readJSON(filepath.Join(s.habitDir(userID), entry.Name()), &habit); err != nil {
			return nil, err
		}
		habits = append(habits, &habit)
	}
	sort.SliceStable(habits, func(i, j int) bool {
		return habits[i].CreatedAt.Before(habits[j].CreatedAt)
	})
	return habits, nil
}

func (s *Store) CreateHabit(ctx context.Context, habit *hb.Habit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if habit.ID == "" {
		habit.ID = uuid.NewString()
	}
	return writeJSON(s.habitPath(habit.UserID, habit.ID), habit, dataFileMode)
}

func (s *Store) UpdateHabit(ctx context.Context, userID, habitID string, fields *hb.HabitFields) (*hb.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	habit, err := s.readHabit(userID, habitID)
	if err != nil {
		return nil, err
	}
	fields.ApplyTo(habit)
	if err := writeJSON(s.habitPath(userID, habitID), habit, dataFileMode); err != nil {
		return nil, err
	}
	return habit, nil
}

func (s *Store) DeleteHabit(ctx context.Context, userID, habitID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.readHabit(userID, habitID); err != nil {
		return err
	}
	return os.Remove(s.habitPath(userID, habitID))
}

// readHabit only looks in the owner's directory, so other users' habits are
// never found
func (s *Store) readHabit(userID, habitID string) (*hb.Habit, error) {
	if habitID == "" || userID == "" {
		return nil, hb.ErrHabitNotFound
	}
	var habit hb.Habit
	if err := readJSON(s.habitPath(userID, habitID), &habit); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, hb.ErrHabitNotFound
		}
		return nil, err
	}
	if habit.UserID != userID {
		return nil, hb.ErrHabitNotFound
	}
	return &habit, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// writeJSON replaces path atomically: the data goes to a temp file in the
// same directory which is then renamed over the target
func writeJSON(path string, v any, perm os.FileMode) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
