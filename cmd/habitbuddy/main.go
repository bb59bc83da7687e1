// Command habitbuddy runs the habit tracker API and talks to it from the
// command line.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
)

// Globals are flags shared by every command
type Globals struct {
	EnvFile []string `name:"env-file" help:"Dotenv files to load before reading the environment." default:".env" type:"path"`

	Server      string `help:"API base URL for client commands." default:"http://localhost:5001" env:"HABITBUDDY_SERVER"`
	Credentials string `help:"Credentials file for client commands. Defaults to the user config dir." type:"path" env:"HABITBUDDY_CREDENTIALS"`
	Debug       bool   `help:"Enable debug logging."`
}

var CLI struct {
	Globals

	Serve   ServeCmd   `cmd:"" help:"Run the HTTP API." default:"1"`
	CheckDB CheckDBCmd `cmd:"" name:"check-db" help:"Connect to the configured database and ping it."`

	Register RegisterCmd `cmd:"" help:"Create an account on the server and log in."`
	Login    LoginCmd    `cmd:"" help:"Log in with a password or a Google ID token."`
	Logout   LogoutCmd   `cmd:"" help:"Forget the stored session."`
	Me       MeCmd       `cmd:"" help:"Show the logged in user."`
	Habits   HabitsCmd   `cmd:"" help:"Manage your habits."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("habitbuddy"),
		kong.Description("Habit tracker API server and client"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	level := "info"
	if CLI.Debug {
		level = "debug"
	}
	setupLogging(level)

	if err := ctx.Run(&CLI.Globals); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogging routes slog through a charmbracelet logger on stderr
func setupLogging(level string) {
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = log.InfoLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		ReportCaller:    lvl == log.DebugLevel,
		Level:           lvl,
		Prefix:          "habitbuddy",
	})
	slog.SetDefault(slog.New(logger))
}
