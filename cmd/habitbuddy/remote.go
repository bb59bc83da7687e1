package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	hb "github.com/panyam/habitbuddy"
	"github.com/panyam/habitbuddy/client"
	credfs "github.com/panyam/habitbuddy/client/stores/fs"
)

const requestTimeout = 30 * time.Second

func newClient(g *Globals) (*client.Client, error) {
	store, err := credfs.NewCredentialStore(g.Credentials)
	if err != nil {
		return nil, err
	}
	return client.NewClient(g.Server, store), nil
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// RegisterCmd creates an account and stores its session
type RegisterCmd struct {
	Email    string `arg:"" help:"Email address."`
	Password string `help:"Password." env:"HABITBUDDY_PASSWORD" required:""`
	Name     string `help:"Display name."`
}

func (r *RegisterCmd) Run(g *Globals) error {
	c, err := newClient(g)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext()
	defer cancel()

	result, err := c.Register(ctx, r.Email, r.Password, r.Name)
	if err != nil {
		return err
	}
	fmt.Printf("Registered and logged in as %s\n", result.User.Email)
	return nil
}

// LoginCmd stores a session obtained with a password or a Google ID token
type LoginCmd struct {
	Email       string `arg:"" optional:"" help:"Email address for password login."`
	Password    string `help:"Password." env:"HABITBUDDY_PASSWORD"`
	GoogleToken string `name:"google-token" help:"Google ID token to exchange instead of a password."`
}

func (l *LoginCmd) Run(g *Globals) error {
	c, err := newClient(g)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext()
	defer cancel()

	var result *hb.AuthResult
	switch {
	case l.GoogleToken != "":
		result, err = c.GoogleLogin(ctx, l.GoogleToken)
	case l.Email != "" && l.Password != "":
		result, err = c.Login(ctx, l.Email, l.Password)
	default:
		return errors.New("either an email and --password, or --google-token is required")
	}
	if err != nil {
		return err
	}
	fmt.Printf("Logged in as %s\n", result.User.Email)
	return nil
}

type LogoutCmd struct{}

func (l *LogoutCmd) Run(g *Globals) error {
	c, err := newClient(g)
	if err != nil {
		return err
	}
	return c.Logout()
}

type MeCmd struct{}

func (m *MeCmd) Run(g *Globals) error {
	c, err := newClient(g)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext()
	defer cancel()

	user, err := c.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s <%s>\nid: %s\nsince: %s\n", user.Name, user.Email, user.ID, user.CreatedAt.Format(time.RFC1123))
	return nil
}

// HabitsCmd groups the habit commands
type HabitsCmd struct {
	List   HabitsListCmd   `cmd:"" help:"List your habits." default:"1"`
	Add    HabitsAddCmd    `cmd:"" help:"Add a habit."`
	Done   HabitsDoneCmd   `cmd:"" help:"Mark a habit done for a day."`
	Delete HabitsDeleteCmd `cmd:"" help:"Delete a habit."`
}

type HabitsListCmd struct{}

func (h *HabitsListCmd) Run(g *Globals) error {
	c, err := newClient(g)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext()
	defer cancel()

	habits, err := c.ListHabits(ctx)
	if err != nil {
		return err
	}
	if len(habits) == 0 {
		fmt.Println("No habits yet.")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tHABIT\tSTREAK\tXP\tDONE\tTIME")
	for _, habit := range habits {
		done := ""
		if habit.Completed {
			done = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s %s\t%d\t%d\t%s\t%s\n", habit.ID, habit.Icon, habit.Title,
			habit.Streak, habit.XPValue, done, habit.Time)
	}
	return tw.Flush()
}

type HabitsAddCmd struct {
	Title string `arg:"" help:"What the habit is."`
	Icon  string `help:"Emoji shown next to the habit."`
	XP    int    `name:"xp" help:"XP awarded per completion." default:"-1"`
	Time  string `help:"Time of day, free form."`
}

func (h *HabitsAddCmd) Run(g *Globals) error {
	c, err := newClient(g)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext()
	defer cancel()

	fields := &hb.HabitFields{Title: &h.Title}
	if h.Icon != "" {
		fields.Icon = &h.Icon
	}
	if h.XP >= 0 {
		fields.XPValue = &h.XP
	}
	if h.Time != "" {
		fields.Time = &h.Time
	}
	habit, err := c.CreateHabit(ctx, fields)
	if err != nil {
		return err
	}
	fmt.Printf("Added %s %s (%s)\n", habit.Icon, habit.Title, habit.ID)
	return nil
}

// HabitsDoneCmd records a completion date, bumping the streak when the date
// is today. The server stores whatever it is given, so the bookkeeping
// happens here.
type HabitsDoneCmd struct {
	ID   string `arg:"" help:"Habit ID."`
	Date string `help:"Day to mark, YYYY-MM-DD. Defaults to today."`
}

func (h *HabitsDoneCmd) Run(g *Globals) error {
	c, err := newClient(g)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext()
	defer cancel()

	today := time.Now().Format(hb.DateLayout)
	date := h.Date
	if date == "" {
		date = today
	}

	habits, err := c.ListHabits(ctx)
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(habits, func(habit *hb.Habit) bool { return habit.ID == h.ID })
	if idx < 0 {
		return fmt.Errorf("habit %s not found", h.ID)
	}
	fields, changed := MarkDone(habits[idx], date, today)
	if !changed {
		fmt.Printf("%s already done on %s\n", habits[idx].Title, date)
		return nil
	}
	habit, err := c.UpdateHabit(ctx, h.ID, fields)
	if err != nil {
		return err
	}
	fmt.Printf("%s done on %s, streak %d\n", habit.Title, date, habit.Streak)
	return nil
}

// MarkDone returns the update that records date as a completion of habit.
// changed is false if date was already recorded. Only a completion for today
// sets completed and moves the streak; back-filled days are appended as is.
func MarkDone(habit *hb.Habit, date, today string) (fields *hb.HabitFields, changed bool) {
	if slices.Contains(habit.CompletedDates, date) {
		return nil, false
	}
	dates := append(slices.Clone(habit.CompletedDates), date)
	fields = &hb.HabitFields{CompletedDates: &dates}
	if date != today {
		return fields, true
	}

	streak := 1
	if day, err := time.Parse(hb.DateLayout, date); err == nil {
		yesterday := day.AddDate(0, 0, -1).Format(hb.DateLayout)
		if slices.Contains(habit.CompletedDates, yesterday) {
			streak = habit.Streak + 1
		}
	}
	completed := true
	fields.Streak = &streak
	fields.Completed = &completed
	return fields, true
}

type HabitsDeleteCmd struct {
	ID string `arg:"" help:"Habit ID."`
}

func (h *HabitsDeleteCmd) Run(g *Globals) error {
	c, err := newClient(g)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext()
	defer cancel()

	if err := c.DeleteHabit(ctx, h.ID); err != nil {
		if client.IsStatus(err, http.StatusNotFound) {
			return fmt.Errorf("habit %s not found", h.ID)
		}
		return err
	}
	fmt.Println("Habit deleted")
	return nil
}
