package habitbuddy

import (
	"strings"
	"time"
)

// Defaults applied to new habits
const (
	DefaultHabitIcon    = "⭐"
	DefaultHabitXPValue = 20

	// DateLayout is the format of entries in Habit.CompletedDates
	DateLayout = "2006-01-02"
)

// HabitFields carries caller supplied habit fields. A nil field was not
// supplied. There is no owner field; the owner comes from the
// authenticated request.
type HabitFields struct {
	Title          *string   `json:"title,omitempty"`
	Icon           *string   `json:"icon,omitempty"`
	Streak         *int      `json:"streak,omitempty"`
	XPValue        *int      `json:"xpValue,omitempty"`
	Completed      *bool     `json:"completed,omitempty"`
	CompletedDates *[]string `json:"completedDates,omitempty"`
	Time           *string   `json:"time,omitempty"`
}

// IsEmpty returns true if no field was supplied
func (f *HabitFields) IsEmpty() bool {
	return f.Title == nil && f.Icon == nil && f.Streak == nil && f.XPValue == nil &&
		f.Completed == nil && f.CompletedDates == nil && f.Time == nil
}

// Validate checks the supplied fields. When creating, a title is required.
func (f *HabitFields) Validate(creating bool) error {
	if f.Title == nil {
		if creating {
			return NewValidationError("title", "is required")
		}
	} else if strings.TrimSpace(*f.Title) == "" {
		return NewValidationError("title", "must not be empty")
	}
	if f.Streak != nil && *f.Streak < 0 {
		return NewValidationError("streak", "must not be negative")
	}
	if f.XPValue != nil && *f.XPValue < 0 {
		return NewValidationError("xpValue", "must not be negative")
	}
	if f.CompletedDates != nil {
		for _, d := range *f.CompletedDates {
			if _, err := time.Parse(DateLayout, d); err != nil {
				return NewValidationError("completedDates", "entries must be YYYY-MM-DD, got "+d)
			}
		}
	}
	return nil
}

// ApplyTo copies the supplied fields onto habit
func (f *HabitFields) ApplyTo(habit *Habit) {
	if f.Title != nil {
		habit.Title = *f.Title
	}
	if f.Icon != nil {
		habit.Icon = *f.Icon
	}
	if f.Streak != nil {
		habit.Streak = *f.Streak
	}
	if f.XPValue != nil {
		habit.XPValue = *f.XPValue
	}
	if f.Completed != nil {
		habit.Completed = *f.Completed
	}
	if f.CompletedDates != nil {
		habit.CompletedDates = append([]string{}, (*f.CompletedDates)...)
	}
	if f.Time != nil {
		habit.Time = *f.Time
	}
}

// NewHabit builds an unsaved habit owned by userID with defaults filled in
func NewHabit(userID string, fields *HabitFields, now time.Time) *Habit {
	habit := &Habit{
		UserID:         userID,
		Icon:           DefaultHabitIcon,
		XPValue:        DefaultHabitXPValue,
		CompletedDates: []string{},
		CreatedAt:      now,
	}
	if fields != nil {
		fields.ApplyTo(habit)
	}
	if habit.Icon == "" {
		habit.Icon = DefaultHabitIcon
	}
	return habit
}
