package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/daystatus"
)

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print the record of a day as JSON",
		Long: `Print the record of a day as JSON. Days without a stored record print
the default record with "exists": false.

Example:
  daystatus get -c daystatus.yaml
  daystatus get -c daystatus.yaml --date 2024-03-15`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer sess.Close()

			date := dateFlag(cmd, sess.store)
			return printJSON(cmd, struct {
				Record daystatus.Record `json:"record"`
				Exists bool             `json:"exists"`
			}{sess.store.GetByDate(date), sess.store.Exists(date)})
		},
	}
	cmd.Flags().String("date", "", "day in YYYY-MM-DD form (default today)")
	return cmd
}

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Save the status of a day",
		Long: `Save the status of a day. The whole record is replaced: courses that are
not named with --course follow the global status.

Course overrides take the form id=status or id=status:message.

Example:
  daystatus set -c daystatus.yaml --status indoor --message "Hall B"
  daystatus set -c daystatus.yaml --date 2024-03-16 --status cancelled \
    --course kids=postponed:"Starts 16:30"`,
		Args: cobra.NoArgs,
		RunE: runSet,
	}
	cmd.Flags().String("date", "", "day in YYYY-MM-DD form (default today)")
	cmd.Flags().String("status", "", "global status: scheduled, cancelled, indoor or postponed")
	cmd.Flags().String("message", "", "global message")
	cmd.Flags().StringArray("course", nil, "course override id=status[:message] (repeatable)")
	return cmd
}

func runSet(cmd *cobra.Command, args []string) error {
	rawCourses, _ := cmd.Flags().GetStringArray("course")
	courses, err := parseCourseFlags(rawCourses)
	if err != nil {
		return err
	}

	status, _ := cmd.Flags().GetString("status")
	message, _ := cmd.Flags().GetString("message")
	in := daystatus.RecordInput{
		GlobalStatus:  daystatus.Status(status),
		GlobalMessage: message,
		Courses:       courses,
	}

	sess, err := openSession(cmd.Context(), cmd, false)
	if err != nil {
		return err
	}
	defer sess.Close()

	res := sess.store.Save(cmd.Context(), in, dateFlag(cmd, sess.store))
	if !res.Success {
		var verr *daystatus.ValidationError
		if errors.As(res.Err, &verr) {
			return fmt.Errorf("record rejected:\n  %s", strings.Join(verr.Errors, "\n  "))
		}
		return fmt.Errorf("save failed: %w", res.Err)
	}
	return printJSON(cmd, res.Record)
}

// parseCourseFlags turns id=status[:message] values into course inputs.
func parseCourseFlags(values []string) (map[string]daystatus.CourseInput, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[string]daystatus.CourseInput, len(values))
	for _, v := range values {
		id, rest, ok := strings.Cut(v, "=")
		if !ok || id == "" || rest == "" {
			return nil, fmt.Errorf("invalid --course %q: want id=status[:message]", v)
		}
		status, message, _ := strings.Cut(rest, ":")
		out[id] = daystatus.CourseInput{Status: daystatus.Status(status), Message: message}
	}
	return out, nil
}

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored record of a day",
		Long: `Remove the stored record of a day so it falls back to the default.

Example:
  daystatus delete -c daystatus.yaml --date 2024-03-15`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer sess.Close()

			date := dateFlag(cmd, sess.store)
			res := sess.store.Delete(cmd.Context(), date)
			if !res.Success {
				return fmt.Errorf("delete %s: %w", date, res.Err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted record for %s\n", date)
			return nil
		},
	}
	cmd.Flags().String("date", "", "day in YYYY-MM-DD form (default today)")
	return cmd
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the status of recent days",
		Long: `List the status of the last days, today first. Days without a stored
record are shown with their default status and no marker.

Example:
  daystatus list -c daystatus.yaml --days 14`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			days, _ := cmd.Flags().GetInt("days")
			if days < 1 {
				return fmt.Errorf("--days must be positive, got %d", days)
			}

			sess, err := openSession(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer sess.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tSTATUS\tSTORED\tMESSAGE")
			for _, rec := range sess.store.ListRecent(days) {
				stored := ""
				if sess.store.Exists(rec.Date) {
					stored = "*"
				}
				label := daystatus.StatusDefinitionFor(rec.GlobalStatus).Label
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.Date, label, stored, rec.GlobalMessage)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int("days", 7, "number of days to list")
	return cmd
}

func newClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every stored record",
		Long: `Remove every stored record, including a legacy document, from storage.
Requires --yes.

Example:
  daystatus clear -c daystatus.yaml --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return errors.New("refusing to clear without --yes")
			}

			sess, err := openSession(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer sess.Close()

			count := len(sess.store.All())
			if err := sess.store.ClearAll(cmd.Context()); err != nil {
				return fmt.Errorf("clear failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d records\n", count)
			return nil
		},
	}
	cmd.Flags().Bool("yes", false, "confirm removing every record")
	return cmd
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove records older than the retention period",
		Long: `Remove records dated more than retention_days before today. The server
does this on its own every sweep_interval; this runs it once.

Example:
  daystatus sweep -c daystatus.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer sess.Close()

			removed, err := sess.store.Sweep(cmd.Context())
			if err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired records (retention %d days)\n",
				removed, sess.store.RetentionDays())
			return nil
		},
	}
}

// dateFlag returns --date, or today in the store's time zone.
func dateFlag(cmd *cobra.Command, st *daystatus.Store) string {
	if d, _ := cmd.Flags().GetString("date"); d != "" {
		return d
	}
	return st.Today()
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
