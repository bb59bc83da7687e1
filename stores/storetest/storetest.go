// Package storetest is a behavioural test suite shared by every
// habitbuddy.Store backend.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	hb "github.com/panyam/habitbuddy"
)

// NewStoreFunc returns an empty store for one subtest
type NewStoreFunc func(t *testing.T) hb.Store

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }

func newUser(t *testing.T, ctx context.Context, s hb.Store, email string) *hb.User {
	t.Helper()
	user := &hb.User{
		Email:        email,
		Name:         "Test " + email,
		PasswordHash: "$2a$10$fakehashfakehashfakehashfakehashfakehashfakehashfake",
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", email, err)
	}
	if user.ID == "" {
		t.Fatalf("CreateUser(%s) did not assign an ID", email)
	}
	return user
}

func newHabit(t *testing.T, ctx context.Context, s hb.Store, userID, title string) *hb.Habit {
	t.Helper()
	habit := hb.NewHabit(userID, &hb.HabitFields{Title: strPtr(title)}, time.Now().UTC().Truncate(time.Millisecond))
	if err := s.CreateHabit(ctx, habit); err != nil {
		t.Fatalf("CreateHabit(%s) failed: %v", title, err)
	}
	if habit.ID == "" {
		t.Fatalf("CreateHabit(%s) did not assign an ID", title)
	}
	return habit
}

// Run exercises newStore against the Store contract
func Run(t *testing.T, newStore NewStoreFunc) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("PasswordlessUser", func(t *testing.T) { testPasswordlessUser(t, newStore(t)) })
	t.Run("HabitCRUD", func(t *testing.T) { testHabitCRUD(t, newStore(t)) })
	t.Run("HabitOwnerScoping", func(t *testing.T) { testHabitOwnerScoping(t, newStore(t)) })
	t.Run("UpdatePreservesUnsuppliedFields", func(t *testing.T) { testPartialUpdate(t, newStore(t)) })
	t.Run("UnknownHabitIDs", func(t *testing.T) { testUnknownHabitIDs(t, newStore(t)) })
	t.Run("Ping", func(t *testing.T) {
		if err := newStore(t).Ping(context.Background()); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})
}

func testUsers(t *testing.T, s hb.Store) {
	ctx := context.Background()
	user := newUser(t, ctx, s, "a@x.com")

	byID, err := s.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if byID.Email != "a@x.com" || byID.Name != user.Name || byID.PasswordHash != user.PasswordHash {
		t.Errorf("GetUserByID returned %+v, want %+v", byID, user)
	}
	if !byID.CreatedAt.Equal(user.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", byID.CreatedAt, user.CreatedAt)
	}

	byEmail, err := s.GetUserByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("GetUserByEmail ID = %s, want %s", byEmail.ID, user.ID)
	}

	// emails are case-sensitive as stored
	if _, err := s.GetUserByEmail(ctx, "A@X.COM"); !errors.Is(err, hb.ErrUserNotFound) {
		t.Errorf("GetUserByEmail with different case: expected ErrUserNotFound, got %v", err)
	}
	if _, err := s.GetUserByEmail(ctx, "nobody@x.com"); !errors.Is(err, hb.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}

	dup := &hb.User{Email: "a@x.com", Name: "Dup", CreatedAt: time.Now()}
	if err := s.CreateUser(ctx, dup); !errors.Is(err, hb.ErrDuplicateAccount) {
		t.Errorf("duplicate email: expected ErrDuplicateAccount, got %v", err)
	}
}

func testPasswordlessUser(t *testing.T, s hb.Store) {
	ctx := context.Background()
	user := &hb.User{Email: "g@x.com", Name: "Google User", CreatedAt: time.Now().UTC()}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	got, err := s.GetUserByEmail(ctx, "g@x.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if got.HasPassword() {
		t.Errorf("expected password-less user, got hash %q", got.PasswordHash)
	}
}

func testHabitCRUD(t *testing.T, s hb.Store) {
	ctx := context.Background()
	user := newUser(t, ctx, s, "crud@x.com")

	habits, err := s.ListHabits(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListHabits failed: %v", err)
	}
	if len(habits) != 0 {
		t.Fatalf("expected no habits, got %d", len(habits))
	}

	run := newHabit(t, ctx, s, user.ID, "Run")
	read := newHabit(t, ctx, s, user.ID, "Read")

	habits, err = s.ListHabits(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListHabits failed: %v", err)
	}
	if len(habits) != 2 {
		t.Fatalf("expected 2 habits, got %d", len(habits))
	}
	titles := map[string]*hb.Habit{}
	for _, h := range habits {
		titles[h.Title] = h
	}
	got := titles["Run"]
	if got == nil || got.ID != run.ID {
		t.Fatalf("Run habit missing from list: %+v", habits)
	}
	if got.UserID != user.ID || got.Icon != hb.DefaultHabitIcon || got.XPValue != hb.DefaultHabitXPValue ||
		got.Streak != 0 || got.Completed {
		t.Errorf("unexpected stored habit: %+v", got)
	}

	dates := []string{"2026-01-01", "2026-01-02"}
	updated, err := s.UpdateHabit(ctx, user.ID, run.ID, &hb.HabitFields{
		Streak:         intPtr(2),
		Completed:      boolPtr(true),
		CompletedDates: &dates,
	})
	if err != nil {
		t.Fatalf("UpdateHabit failed: %v", err)
	}
	if updated.ID != run.ID || updated.Streak != 2 || !updated.Completed {
		t.Errorf("unexpected updated habit: %+v", updated)
	}
	if len(updated.CompletedDates) != 2 || updated.CompletedDates[0] != "2026-01-01" || updated.CompletedDates[1] != "2026-01-02" {
		t.Errorf("CompletedDates = %v, want %v", updated.CompletedDates, dates)
	}

	if err := s.DeleteHabit(ctx, user.ID, read.ID); err != nil {
		t.Fatalf("DeleteHabit failed: %v", err)
	}
	habits, err = s.ListHabits(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListHabits failed: %v", err)
	}
	if len(habits) != 1 || habits[0].ID != run.ID {
		t.Errorf("expected only Run to remain, got %+v", habits)
	}
	if err := s.DeleteHabit(ctx, user.ID, read.ID); !errors.Is(err, hb.ErrHabitNotFound) {
		t.Errorf("second delete: expected ErrHabitNotFound, got %v", err)
	}
}

func testHabitOwnerScoping(t *testing.T, s hb.Store) {
	ctx := context.Background()
	alice := newUser(t, ctx, s, "alice@x.com")
	bob := newUser(t, ctx, s, "bob@x.com")
	habit := newHabit(t, ctx, s, alice.ID, "Alice's habit")

	bobs, err := s.ListHabits(ctx, bob.ID)
	if err != nil {
		t.Fatalf("ListHabits failed: %v", err)
	}
	if len(bobs) != 0 {
		t.Errorf("bob sees %d habits, expected 0", len(bobs))
	}

	if _, err := s.UpdateHabit(ctx, bob.ID, habit.ID, &hb.HabitFields{Title: strPtr("hijacked")}); !errors.Is(err, hb.ErrHabitNotFound) {
		t.Errorf("cross-user update: expected ErrHabitNotFound, got %v", err)
	}
	if err := s.DeleteHabit(ctx, bob.ID, habit.ID); !errors.Is(err, hb.ErrHabitNotFound) {
		t.Errorf("cross-user delete: expected ErrHabitNotFound, got %v", err)
	}

	alices, err := s.ListHabits(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListHabits failed: %v", err)
	}
	if len(alices) != 1 || alices[0].Title != "Alice's habit" {
		t.Errorf("alice's habit was modified: %+v", alices)
	}
}

func testPartialUpdate(t *testing.T, s hb.Store) {
	ctx := context.Background()
	user := newUser(t, ctx, s, "partial@x.com")
	habit := newHabit(t, ctx, s, user.ID, "Meditate")

	updated, err := s.UpdateHabit(ctx, user.ID, habit.ID, &hb.HabitFields{Time: strPtr("07:30")})
	if err != nil {
		t.Fatalf("UpdateHabit failed: %v", err)
	}
	if updated.Title != "Meditate" || updated.Icon != hb.DefaultHabitIcon || updated.XPValue != hb.DefaultHabitXPValue {
		t.Errorf("unsupplied fields changed: %+v", updated)
	}
	if updated.Time != "07:30" {
		t.Errorf("Time = %q, want 07:30", updated.Time)
	}
	if updated.UserID != user.ID {
		t.Errorf("owner changed to %q", updated.UserID)
	}
	if !updated.CreatedAt.Equal(habit.CreatedAt) {
		t.Errorf("CreatedAt changed from %v to %v", habit.CreatedAt, updated.CreatedAt)
	}

	same, err := s.UpdateHabit(ctx, user.ID, habit.ID, &hb.HabitFields{})
	if err != nil {
		t.Fatalf("empty UpdateHabit failed: %v", err)
	}
	if same.Time != "07:30" || same.Title != "Meditate" {
		t.Errorf("empty update changed habit: %+v", same)
	}
}

func testUnknownHabitIDs(t *testing.T, s hb.Store) {
	ctx := context.Background()
	user := newUser(t, ctx, s, "unknown@x.com")

	for _, id := range []string{"", "does-not-exist", "507f1f77bcf86cd799439011", "../../users"} {
		if _, err := s.UpdateHabit(ctx, user.ID, id, &hb.HabitFields{Title: strPtr("x")}); !errors.Is(err, hb.ErrHabitNotFound) {
			t.Errorf("UpdateHabit(%q): expected ErrHabitNotFound, got %v", id, err)
		}
		if err := s.DeleteHabit(ctx, user.ID, id); !errors.Is(err, hb.ErrHabitNotFound) {
			t.Errorf("DeleteHabit(%q): expected ErrHabitNotFound, got %v", id, err)
		}
	}
}
