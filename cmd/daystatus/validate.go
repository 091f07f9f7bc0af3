package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/daystatus/config"
)

// newValidateCmd validates a config file without opening storage.
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate a config file",
		Long: `Validate a daystatus configuration file without opening storage.

This command parses the file, expands environment variables, and validates
all fields including the course list. It's useful for CI/CD pipelines or
pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  daystatus validate -c daystatus.yaml
  daystatus validate --config /etc/daystatus/daystatus.toml`,
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	courses, err := config.BuildCourses(cfg)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	tz := cfg.Timezone
	if tz == "" {
		tz = "local"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Title:          %s\n", cfg.Title)
	fmt.Fprintf(out, "  Port:           %d\n", cfg.Server.Port)
	fmt.Fprintf(out, "  Timezone:       %s\n", tz)
	fmt.Fprintf(out, "  Storage:        %s\n", cfg.Storage.Driver)
	fmt.Fprintf(out, "  Retention:      %d days\n", cfg.RetentionDays)
	fmt.Fprintf(out, "  Sweep interval: %s\n", cfg.SweepInterval.Duration())
	fmt.Fprintf(out, "  Courses:        %d\n", len(courses))
	for _, c := range courses {
		if c.Time() != "" {
			fmt.Fprintf(out, "    - %s (%s) %s\n", c.Name(), c.ID(), c.Time())
		} else {
			fmt.Fprintf(out, "    - %s (%s)\n", c.Name(), c.ID())
		}
	}

	return nil
}
