//go:build !wasm
// +build !wasm

package gae

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/datastore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	hb "github.com/panyam/habitbuddy"
)

// Kind constants for Datastore entities
const (
	KindUser      = "User"
	KindUserEmail = "UserEmail"
	KindHabit     = "Habit"
)

// Store implements habitbuddy.Store using Google Cloud Datastore
type Store struct {
	client    *datastore.Client
	namespace string
}

// NewStore creates a new Datastore-backed Store
func NewStore(client *datastore.Client, namespace string) *Store {
	return &Store{
		client:    client,
		namespace: namespace,
	}
}

func (s *Store) namespacedKey(kind, name string) *datastore.Key {
	key := datastore.NameKey(kind, name, nil)
	key.Namespace = s.namespace
	return key
}

func emailKeyName(email string) string {
	hash := sha256.Sum256([]byte(email))
	return hex.EncodeToString(hash[:])
}

func (s *Store) Ping(ctx context.Context) error {
	query := datastore.NewQuery(KindUser).Namespace(s.namespace).KeysOnly().Limit(1)
	_, err := s.client.GetAll(ctx, query, nil)
	return err
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Close()
}

// ============================================================================
// UserStore
// ============================================================================

func (s *Store) CreateUser(ctx context.Context, user *hb.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	emailKey := s.namespacedKey(KindUserEmail, emailKeyName(user.Email))
	userKey := s.namespacedKey(KindUser, user.ID)

	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing UserEmailEntity
		err := tx.Get(emailKey, &existing)
		if err == nil {
			return hb.ErrDuplicateAccount
		}
		if err != datastore.ErrNoSuchEntity {
			return err
		}
		if _, err := tx.Put(emailKey, &UserEmailEntity{Email: user.Email, UserID: user.ID}); err != nil {
			return err
		}
		_, err = tx.Put(userKey, &UserEntity{
			Email:        user.Email,
			Name:         user.Name,
			PasswordHash: user.PasswordHash,
			CreatedAt:    user.CreatedAt,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, hb.ErrDuplicateAccount) {
			return hb.ErrDuplicateAccount
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (*hb.User, error) {
	if userID == "" {
		return nil, hb.ErrUserNotFound
	}
	var entity UserEntity
	if err := s.client.Get(ctx, s.namespacedKey(KindUser, userID), &entity); err != nil {
		if err == datastore.ErrNoSuchEntity {
			return nil, hb.ErrUserNotFound
		}
		return nil, err
	}
	return entity.ToUser(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*hb.User, error) {
	var idx UserEmailEntity
	if err := s.client.Get(ctx, s.namespacedKey(KindUserEmail, emailKeyName(email)), &idx); err != nil {
		if err == datastore.ErrNoSuchEntity {
			return nil, hb.ErrUserNotFound
		}
		return nil, err
	}
	return s.GetUserByID(ctx, idx.UserID)
}

// ============================================================================
// HabitStore
// ============================================================================

func (s *Store) ListHabits(ctx context.Context, userID string) ([]*hb.Habit, error) {
	query := datastore.NewQuery(KindHabit).
		Namespace(s.namespace).
		FilterField("user_id", "=", userID)

	habits := []*hb.Habit{}
	it := s.client.Run(ctx, query)
	for {
		var entity HabitEntity
		_, err := it.Next(&entity)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		habits = append(habits, entity.ToHabit())
	}
	// Sorted here so the query needs no composite index
	sort.SliceStable(habits, func(i, j int) bool {
		return habits[i].CreatedAt.Before(habits[j].CreatedAt)
	})
	return habits, nil
}

func (s *Store) CreateHabit(ctx context.Context, habit *hb.Habit) error {
	if habit.ID == "" {
		habit.ID = uuid.NewString()
	}
	key := s.namespacedKey(KindHabit, habit.ID)
	if _, err := s.client.Put(ctx, key, HabitToEntity(habit, key)); err != nil {
		return fmt.Errorf("failed to create habit: %w", err)
	}
	return nil
}

func (s *Store) UpdateHabit(ctx context.Context, userID, habitID string, fields *hb.HabitFields) (*hb.Habit, error) {
	if habitID == "" {
		return nil, hb.ErrHabitNotFound
	}
	key := s.namespacedKey(KindHabit, habitID)
	var habit *hb.Habit
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var entity HabitEntity
		if err := tx.Get(key, &entity); err != nil {
			if err == datastore.ErrNoSuchEntity {
				return hb.ErrHabitNotFound
			}
			return err
		}
		if entity.UserID != userID {
			return hb.ErrHabitNotFound
		}
		entity.Key = key
		habit = entity.ToHabit()
		fields.ApplyTo(habit)
		_, err := tx.Put(key, HabitToEntity(habit, key))
		return err
	})
	if err != nil {
		if errors.Is(err, hb.ErrHabitNotFound) {
			return nil, hb.ErrHabitNotFound
		}
		return nil, fmt.Errorf("failed to update habit: %w", err)
	}
	return habit, nil
}

func (s *Store) DeleteHabit(ctx context.Context, userID, habitID string) error {
	if habitID == "" {
		return hb.ErrHabitNotFound
	}
	key := s.namespacedKey(KindHabit, habitID)
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var entity HabitEntity
		if err := tx.Get(key, &entity); err != nil {
			if err == datastore.ErrNoSuchEntity {
				return hb.ErrHabitNotFound
			}
			return err
		}
		if entity.UserID != userID {
			return hb.ErrHabitNotFound
		}
		return tx.Delete(key)
	})
	if err != nil {
		if errors.Is(err, hb.ErrHabitNotFound) {
			return hb.ErrHabitNotFound
		}
		return fmt.Errorf("failed to delete habit: %w", err)
	}
	return nil
}
