package daystatus

import (
	"strings"
	"time"
)

// Normalize completes in into a full [Record] for date.
//
// A missing global status becomes scheduled. Every configured course gets
// an entry; a course without its own status takes the global one. Unknown
// non-empty statuses are kept as given so [Validate] can reject them. Input
// for courses that are not configured is dropped. The record is stamped
// with now and the current [SchemaVersion].
//
// Normalize does not validate; pass the result to [Validate].
func Normalize(in RecordInput, date string, courses []Course, now time.Time) Record {
	return normalize(in, date, courses, &now)
}

// DefaultRecord returns the record reported for a day with no stored data:
// everything scheduled, no messages, and a nil LastUpdated.
func DefaultRecord(date string, courses []Course) Record {
	return normalize(RecordInput{}, date, courses, nil)
}

func normalize(in RecordInput, date string, courses []Course, stamp *time.Time) Record {
	global := Status(strings.TrimSpace(string(in.GlobalStatus)))
	if global == "" {
		global = StatusScheduled
	}

	// courses fall back to a usable status even when the global one is bogus
	fallback := global
	if !fallback.Valid() {
		fallback = StatusScheduled
	}

	rec := Record{
		Date:          date,
		GlobalStatus:  global,
		GlobalMessage: in.GlobalMessage,
		Courses:       make(map[string]CourseStatus, len(courses)),
		Version:       SchemaVersion,
	}
	if stamp != nil {
		t := *stamp
		rec.LastUpdated = &t
	}

	for _, c := range courses {
		entry := CourseStatus{
			Status: fallback,
			Name:   c.Name(),
			Time:   c.Time(),
		}
		if ci, ok := in.Courses[c.ID()]; ok {
			if s := Status(strings.TrimSpace(string(ci.Status))); s != "" {
				entry.Status = s
			}
			entry.Message = ci.Message
		}
		rec.Courses[c.ID()] = entry
	}

	return rec
}
