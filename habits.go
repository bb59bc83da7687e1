package habitbuddy

import (
	"context"
	"time"
)

// HabitService exposes habit CRUD for the user bound to the request context.
// Every call re-reads the owner from ctx; nothing is cached between calls.
type HabitService struct {
	Habits HabitStore

	// Now defaults to time.Now
	Now func() time.Time
}

func (s *HabitService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func ownerFromContext(ctx context.Context) (string, error) {
	userID := GetUserIDFromContext(ctx)
	if userID == "" {
		return "", ErrUnauthenticated
	}
	return userID, nil
}

// List returns the caller's habits. The result is never nil.
func (s *HabitService) List(ctx context.Context) ([]*Habit, error) {
	userID, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	habits, err := s.Habits.ListHabits(ctx, userID)
	if err != nil {
		return nil, err
	}
	if habits == nil {
		habits = []*Habit{}
	}
	return habits, nil
}

// Create saves a new habit owned by the caller
func (s *HabitService) Create(ctx context.Context, fields *HabitFields) (*Habit, error) {
	userID, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if fields == nil {
		fields = &HabitFields{}
	}
	if err := fields.Validate(true); err != nil {
		return nil, err
	}
	habit := NewHabit(userID, fields, s.now())
	if err := s.Habits.CreateHabit(ctx, habit); err != nil {
		return nil, err
	}
	return habit, nil
}

// Update changes the supplied fields of one of the caller's habits
func (s *HabitService) Update(ctx context.Context, habitID string, fields *HabitFields) (*Habit, error) {
	userID, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if fields == nil {
		fields = &HabitFields{}
	}
	if err := fields.Validate(false); err != nil {
		return nil, err
	}
	return s.Habits.UpdateHabit(ctx, userID, habitID, fields)
}

// Delete removes one of the caller's habits
func (s *HabitService) Delete(ctx context.Context, habitID string) error {
	userID, err := ownerFromContext(ctx)
	if err != nil {
		return err
	}
	return s.Habits.DeleteHabit(ctx, userID, habitID)
}
