// Package export renders status records as files for people: an iCalendar
// feed of the days that deviate from the plan, and a spreadsheet overview.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/jpalmerr/daystatus"
)

const defaultProductID = "-//daystatus//training status//EN"

// ICSOptions configures [WriteICS].
type ICSOptions struct {
	// Title is the calendar name shown by clients.
	Title string

	// ProductID is the PRODID of the calendar. Defaults to a daystatus id.
	ProductID string

	// Now stamps DTSTAMP. Defaults to time.Now.
	Now func() time.Time
}

// WriteICS writes one all-day event per record that is not entirely
// scheduled. A day whose global status is cancelled is marked CANCELLED;
// every other listed day is CONFIRMED.
func WriteICS(w io.Writer, records []daystatus.Record, opts ICSOptions) error {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	prodID := opts.ProductID
	if prodID == "" {
		prodID = defaultProductID
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(prodID)
	if opts.Title != "" {
		cal.SetName(opts.Title)
		cal.SetXWRCalName(opts.Title)
	}

	stamp := now().UTC()
	for _, rec := range sortedByDate(records) {
		if !deviates(rec) {
			continue
		}

		day, err := time.Parse(daystatus.DateLayout, rec.Date)
		if err != nil {
			return fmt.Errorf("record %q: %w", rec.Date, err)
		}

		event := cal.AddEvent("daystatus-" + rec.Date)
		event.SetDtStampTime(stamp)
		if rec.LastUpdated != nil {
			event.SetModifiedAt(rec.LastUpdated.UTC())
		}
		event.SetAllDayStartAt(day)
		event.SetAllDayEndAt(day.AddDate(0, 0, 1))
		event.SetSummary(summary(rec))
		event.SetDescription(description(rec))
		event.SetProperty(ics.ComponentPropertyCategories, strings.ToUpper(string(rec.GlobalStatus)))

		if rec.GlobalStatus == daystatus.StatusCancelled {
			event.SetStatus(ics.ObjectStatusCancelled)
		} else {
			event.SetStatus(ics.ObjectStatusConfirmed)
		}
	}

	return cal.SerializeTo(w)
}

// deviates reports whether anything on the day differs from the plan.
func deviates(rec daystatus.Record) bool {
	if rec.GlobalStatus != daystatus.StatusScheduled || rec.GlobalMessage != "" {
		return true
	}
	for _, c := range rec.Courses {
		if c.Status != daystatus.StatusScheduled || c.Message != "" {
			return true
		}
	}
	return false
}

func summary(rec daystatus.Record) string {
	label := daystatus.StatusDefinitionFor(rec.GlobalStatus).Label
	if rec.GlobalMessage == "" {
		return "Training: " + label
	}
	return fmt.Sprintf("Training: %s (%s)", label, rec.GlobalMessage)
}

// description lists every course, one per line.
func description(rec daystatus.Record) string {
	ids := make([]string, 0, len(rec.Courses))
	for id := range rec.Courses {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for _, id := range ids {
		c := rec.Courses[id]
		name := c.Name
		if name == "" {
			name = id
		}
		fmt.Fprintf(&b, "%s: %s", name, daystatus.StatusDefinitionFor(c.Status).Label)
		if c.Time != "" {
			fmt.Fprintf(&b, " [%s]", c.Time)
		}
		if c.Message != "" {
			fmt.Fprintf(&b, " - %s", c.Message)
		}
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func sortedByDate(records []daystatus.Record) []daystatus.Record {
	out := append([]daystatus.Record(nil), records...)
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
