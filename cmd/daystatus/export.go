package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/daystatus/internal/export"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export recent days as a calendar or spreadsheet",
		Long: `Export the last days as an iCalendar file (only days that deviate from
the plan become events) or as an XLSX workbook (one row per day).

Without --out the export is written to stdout.

Example:
  daystatus export -c daystatus.yaml --format ics --days 30 --out status.ics
  daystatus export -c daystatus.yaml --format xlsx --out status.xlsx`,
		Args: cobra.NoArgs,
		RunE: runExport,
	}
	cmd.Flags().String("format", "ics", "export format: ics or xlsx")
	cmd.Flags().Int("days", 30, "number of days to export, ending today")
	cmd.Flags().StringP("out", "o", "", "output file (default stdout)")
	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	days, _ := cmd.Flags().GetInt("days")
	out, _ := cmd.Flags().GetString("out")

	if format != "ics" && format != "xlsx" {
		return fmt.Errorf("unknown --format %q: want ics or xlsx", format)
	}
	if days < 1 {
		return fmt.Errorf("--days must be positive, got %d", days)
	}

	sess, err := openSession(cmd.Context(), cmd, false)
	if err != nil {
		return err
	}
	defer sess.Close()

	records := sess.store.ListRecent(days)

	var buf bytes.Buffer
	switch format {
	case "ics":
		err = export.WriteICS(&buf, records, export.ICSOptions{Title: sess.cfg.Title})
	case "xlsx":
		err = export.WriteXLSX(&buf, records, sess.store.Courses())
	}
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if out == "" {
		_, err = io.Copy(cmd.OutOrStdout(), &buf)
		return err
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	sess.logger.Info("export written", "path", out, "format", format, "days", days)
	return nil
}
