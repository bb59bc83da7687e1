//go:build !wasm
// +build !wasm

package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	hb "github.com/panyam/habitbuddy"
)

// StringSlice is a helper type for storing string slices as JSON
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringSlice) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*s = StringSlice{}
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into StringSlice", value)
	}
}

// UserModel is the GORM model for users
type UserModel struct {
	ID           string    `gorm:"primaryKey;size:64"`
	Email        string    `gorm:"uniqueIndex;size:255;not null"`
	Name         string    `gorm:"size:255"`
	PasswordHash string    `gorm:"size:255"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) ToUser() *hb.User {
	return &hb.User{
		ID:           m.ID,
		Email:        m.Email,
		Name:         m.Name,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
	}
}

func UserToModel(u *hb.User) *UserModel {
	return &UserModel{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}

// HabitModel is the GORM model for habits
type HabitModel struct {
	ID             string `gorm:"primaryKey;size:64"`
	UserID         string `gorm:"size:64;index;not null"`
	Title          string `gorm:"size:255;not null"`
	Icon           string `gorm:"size:32"`
	Streak         int
	XPValue        int `gorm:"column:xp_value"`
	Completed      bool
	CompletedDates StringSlice `gorm:"type:text"`
	Time           string      `gorm:"size:32"`
	CreatedAt      time.Time   `gorm:"autoCreateTime;index"`
}

func (HabitModel) TableName() string {
	return "habits"
}

func (m *HabitModel) ToHabit() *hb.Habit {
	dates := []string(m.CompletedDates)
	if dates == nil {
		dates = []string{}
	}
	return &hb.Habit{
		ID:             m.ID,
		UserID:         m.UserID,
		Title:          m.Title,
		Icon:           m.Icon,
		Streak:         m.Streak,
		XPValue:        m.XPValue,
		Completed:      m.Completed,
		CompletedDates: dates,
		Time:           m.Time,
		CreatedAt:      m.CreatedAt,
	}
}

func HabitToModel(h *hb.Habit) *HabitModel {
	return &HabitModel{
		ID:             h.ID,
		UserID:         h.UserID,
		Title:          h.Title,
		Icon:           h.Icon,
		Streak:         h.Streak,
		XPValue:        h.XPValue,
		Completed:      h.Completed,
		CompletedDates: StringSlice(h.CompletedDates),
		Time:           h.Time,
		CreatedAt:      h.CreatedAt,
	}
}
