// Package main is the entry point for the daystatus CLI.
//
// daystatus keeps the daily operating status of a sports school's training
// courses. The CLI serves the status board and edits the stored records
// directly, using the same configuration file for both.
//
// Usage:
//
//	daystatus serve -c daystatus.yaml                 # Start the status board
//	daystatus set -c daystatus.yaml --status indoor   # Change today's status
//	daystatus list -c daystatus.yaml --days 14        # Show recent days
//	daystatus validate -c daystatus.yaml              # Validate configuration
//	daystatus version                                 # Show version info
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// newRootCmd builds the command tree. Every call returns fresh commands with
// fresh flag state.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "daystatus",
		Short: "Daily training status for a sports school",
		Long: `daystatus publishes whether today's training takes place as planned,
is cancelled, moves indoors or starts later, per course.

Quick start:
  1. Create a config file (daystatus.yaml)
  2. Run: daystatus serve -c daystatus.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  title: Riverside Sports School
  timezone: Europe/Berlin
  storage:
    driver: bolt
    path: /var/lib/daystatus/status.db
  courses:
    - id: kids
      name: Kids (6-10)
      time: 16:00-17:00`,
		SilenceUsage: true,
		// No Run/RunE means this just shows help when called without subcommands
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file (YAML, or TOML by .toml extension)")
	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")

	root.AddCommand(
		newServeCmd(),
		newValidateCmd(),
		newGetCmd(),
		newSetCmd(),
		newDeleteCmd(),
		newListCmd(),
		newClearCmd(),
		newSweepCmd(),
		newExportCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// newLogger creates a JSON logger on stderr at the level named by the
// --log-level flag.
func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	raw, _ := cmd.Flags().GetString("log-level")

	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", raw, err)
	}

	return slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	})), nil
}

// newVersionCmd prints version information.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash, and build date of this daystatus binary.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "daystatus %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}
