//go:build !wasm
// +build !wasm

package gae

import (
	"time"

	"cloud.google.com/go/datastore"

	hb "github.com/panyam/habitbuddy"
)

// UserEntity is the Datastore entity for users
type UserEntity struct {
	Key          *datastore.Key `datastore:"__key__"`
	Email        string         `datastore:"email"`
	Name         string         `datastore:"name,noindex"`
	PasswordHash string         `datastore:"password_hash,noindex"`
	CreatedAt    time.Time      `datastore:"created_at"`
}

func (e *UserEntity) ToUser() *hb.User {
	return &hb.User{
		ID:           e.Key.Name,
		Email:        e.Email,
		Name:         e.Name,
		PasswordHash: e.PasswordHash,
		CreatedAt:    e.CreatedAt,
	}
}

// UserEmailEntity reserves an email address for a single user.
// Key format: sha256(email)
type UserEmailEntity struct {
	Key    *datastore.Key `datastore:"__key__"`
	Email  string         `datastore:"email,noindex"`
	UserID string         `datastore:"user_id,noindex"`
}

// HabitEntity is the Datastore entity for habits
type HabitEntity struct {
	Key            *datastore.Key `datastore:"__key__"`
	UserID         string         `datastore:"user_id"`
	Title          string         `datastore:"title,noindex"`
	Icon           string         `datastore:"icon,noindex"`
	Streak         int            `datastore:"streak,noindex"`
	XPValue        int            `datastore:"xp_value,noindex"`
	Completed      bool           `datastore:"completed,noindex"`
	CompletedDates []string       `datastore:"completed_dates,noindex"`
	Time           string         `datastore:"time,noindex"`
	CreatedAt      time.Time      `datastore:"created_at"`
}

func (e *HabitEntity) ToHabit() *hb.Habit {
	dates := e.CompletedDates
	if dates == nil {
		dates = []string{}
	}
	return &hb.Habit{
		ID:             e.Key.Name,
		UserID:         e.UserID,
		Title:          e.Title,
		Icon:           e.Icon,
		Streak:         e.Streak,
		XPValue:        e.XPValue,
		Completed:      e.Completed,
		CompletedDates: dates,
		Time:           e.Time,
		CreatedAt:      e.CreatedAt,
	}
}

func HabitToEntity(h *hb.Habit, key *datastore.Key) *HabitEntity {
	return &HabitEntity{
		Key:            key,
		UserID:         h.UserID,
		Title:          h.Title,
		Icon:           h.Icon,
		Streak:         h.Streak,
		XPValue:        h.XPValue,
		Completed:      h.Completed,
		CompletedDates: h.CompletedDates,
		Time:           h.Time,
		CreatedAt:      h.CreatedAt,
	}
}
