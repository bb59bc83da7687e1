//go:build !wasm
// +build !wasm

package gorm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	hb "github.com/panyam/habitbuddy"
)

// AutoMigrate runs database migrations for all habitbuddy tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&HabitModel{},
	)
}

// Store implements habitbuddy.Store using GORM
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// =============================================================================
// UserStore
// =============================================================================

func (s *Store) CreateUser(ctx context.Context, user *hb.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	model := UserToModel(user)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&UserModel{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return hb.ErrDuplicateAccount
		}
		return tx.Create(model).Error
	})
	if err != nil {
		if errors.Is(err, hb.ErrDuplicateAccount) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return hb.ErrDuplicateAccount
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.CreatedAt = model.CreatedAt
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (*hb.User, error) {
	return s.getUser(ctx, "id = ?", userID)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*hb.User, error) {
	return s.getUser(ctx, "email = ?", email)
}

func (s *Store) getUser(ctx context.Context, query string, arg string) (*hb.User, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).First(&model, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, hb.ErrUserNotFound
		}
		return nil, err
	}
	return model.ToUser(), nil
}

// =============================================================================
// HabitStore
// =============================================================================

func (s *Store) ListHabits(ctx context.Context, userID string) ([]*hb.Habit, error) {
	var models []HabitModel
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at, id").Find(&models).Error; err != nil {
		return nil, err
	}
	habits := make([]*hb.Habit, 0, len(models))
	for i := range models {
		habits = append(habits, models[i].ToHabit())
	}
	return habits, nil
}

func (s *Store) CreateHabit(ctx context.Context, habit *hb.Habit) error {
	if habit.ID == "" {
		habit.ID = uuid.NewString()
	}
	model := HabitToModel(habit)
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create habit: %w", err)
	}
	habit.CreatedAt = model.CreatedAt
	return nil
}

func (s *Store) UpdateHabit(ctx context.Context, userID, habitID string, fields *hb.HabitFields) (*hb.Habit, error) {
	var habit *hb.Habit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model HabitModel
		if err := tx.First(&model, "id = ? AND user_id = ?", habitID, userID).Error; err != nil {
			return err
		}
		habit = model.ToHabit()
		fields.ApplyTo(habit)
		return tx.Save(HabitToModel(habit)).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, hb.ErrHabitNotFound
		}
		return nil, fmt.Errorf("failed to update habit: %w", err)
	}
	return habit, nil
}

func (s *Store) DeleteHabit(ctx context.Context, userID, habitID string) error {
	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", habitID, userID).Delete(&HabitModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete habit: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return hb.ErrHabitNotFound
	}
	return nil
}
