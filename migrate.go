package daystatus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MigrationReport summarizes a [Migrate] run.
type MigrationReport struct {
	// Kept is the number of entries in the result.
	Kept int

	// Upgraded counts kept entries written by an older schema.
	Upgraded int

	// Dropped lists discarded entries, sorted by key.
	Dropped []DroppedEntry
}

// DroppedEntry is one entry [Migrate] discarded.
type DroppedEntry struct {
	Key    string
	Reason string
}

// statusAliases maps values written by older versions onto the enum.
var statusAliases = map[string]Status{
	"scheduled": StatusScheduled,
	"normal":    StatusScheduled,
	"ok":        StatusScheduled,
	"active":    StatusScheduled,
	"open":      StatusScheduled,
	"cancelled": StatusCancelled,
	"canceled":  StatusCancelled,
	"cancel":    StatusCancelled,
	"closed":    StatusCancelled,
	"indoor":    StatusIndoor,
	"indoors":   StatusIndoor,
	"hall":      StatusIndoor,
	"postponed": StatusPostponed,
	"delayed":   StatusPostponed,
	"late":      StatusPostponed,
}

// Migrate upgrades raw stored entries to current [Record] values.
//
// Entries are keyed by date. Older field names and status spellings are
// mapped onto the current schema, unknown statuses become scheduled and
// over-long messages are truncated. The stored lastUpdated is kept, so
// migrating an already current document returns it unchanged. Entries whose
// key is not a date, whose value is not a JSON object, or which still fail
// [Validate] are dropped and listed in the report. Migrate never fails as a
// whole.
func Migrate(raw map[string]json.RawMessage, courses []Course) (map[string]Record, MigrationReport) {
	out := make(map[string]Record, len(raw))
	var report MigrationReport

	for key, value := range raw {
		rec, upgraded, err := migrateEntry(key, value, courses)
		if err != nil {
			report.Dropped = append(report.Dropped, DroppedEntry{Key: key, Reason: err.Error()})
			continue
		}
		out[key] = rec
		if upgraded {
			report.Upgraded++
		}
	}

	report.Kept = len(out)
	sort.Slice(report.Dropped, func(i, j int) bool {
		return report.Dropped[i].Key < report.Dropped[j].Key
	})
	return out, report
}

func migrateEntry(key string, value json.RawMessage, courses []Course) (Record, bool, error) {
	if _, err := time.Parse(DateLayout, key); err != nil {
		return Record{}, false, errors.New("key is not a YYYY-MM-DD date")
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(value, &obj); err != nil || obj == nil {
		return Record{}, false, errors.New("value is not a JSON object")
	}

	upgraded := false
	var version int
	if v, ok := obj["version"]; !ok || json.Unmarshal(v, &version) != nil || version < SchemaVersion {
		upgraded = true
	}

	in := RecordInput{}
	if s, field, ok := firstString(obj, "globalStatus", "status", "state"); ok {
		in.GlobalStatus = coerceStatus(s)
		upgraded = upgraded || field != "globalStatus" || in.GlobalStatus != Status(s)
	}
	if s, field, ok := firstString(obj, "globalMessage", "message", "note", "notice"); ok {
		in.GlobalMessage = truncate(s, MaxGlobalMessage)
		upgraded = upgraded || field != "globalMessage" || in.GlobalMessage != s
	}
	if c, ok := obj["courses"]; ok {
		courseIn, legacy := decodeCourses(c)
		in.Courses = courseIn
		upgraded = upgraded || legacy
	}

	stamp, field := firstTime(obj, "lastUpdated", "updatedAt", "updated", "timestamp")
	if field != "" && field != "lastUpdated" {
		upgraded = true
	}

	rec := normalize(in, key, courses, stamp)
	if res := Validate(rec, courses); !res.Valid {
		return Record{}, false, fmt.Errorf("invalid after migration: %s", strings.Join(res.Errors, "; "))
	}
	return rec, upgraded, nil
}

// decodeCourses accepts the current map form and the older array form. It
// reports whether anything had to be rewritten.
func decodeCourses(raw json.RawMessage) (map[string]CourseInput, bool) {
	raw = bytes.TrimSpace(raw)
	out := make(map[string]CourseInput)
	legacy := false

	switch {
	case bytes.HasPrefix(raw, []byte("{")):
		var m map[string]json.RawMessage
		if json.Unmarshal(raw, &m) != nil {
			return nil, true
		}
		for id, v := range m {
			ci, rewritten := decodeCourse(v)
			out[id] = ci
			legacy = legacy || rewritten
		}
	case bytes.HasPrefix(raw, []byte("[")):
		legacy = true
		var list []json.RawMessage
		if json.Unmarshal(raw, &list) != nil {
			return nil, true
		}
		for _, v := range list {
			var obj map[string]json.RawMessage
			if json.Unmarshal(v, &obj) != nil {
				continue
			}
			id, _, ok := firstString(obj, "id", "courseId", "course")
			if !ok || id == "" {
				continue
			}
			ci, _ := decodeCourse(v)
			out[id] = ci
		}
	default:
		return nil, !bytes.Equal(raw, []byte("null"))
	}

	return out, legacy
}

// decodeCourse reads one course entry, either an object or a bare status
// string.
func decodeCourse(raw json.RawMessage) (CourseInput, bool) {
	var bare string
	if json.Unmarshal(raw, &bare) == nil {
		return CourseInput{Status: coerceStatus(bare)}, true
	}

	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) != nil {
		return CourseInput{}, true
	}

	var ci CourseInput
	rewritten := false
	if s, field, ok := firstString(obj, "status", "state"); ok {
		ci.Status = coerceStatus(s)
		rewritten = field != "status" || ci.Status != Status(s)
	}
	if s, field, ok := firstString(obj, "message", "note", "notice"); ok {
		ci.Message = truncate(s, MaxCourseMessage)
		rewritten = rewritten || field != "message" || ci.Message != s
	}
	return ci, rewritten
}

// coerceStatus maps s onto the enum. Empty stays empty so normalization can
// apply its fallback; anything unrecognized becomes scheduled.
func coerceStatus(s string) Status {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if st, ok := statusAliases[s]; ok {
		return st
	}
	return StatusScheduled
}

// firstString returns the first of keys holding a JSON string.
func firstString(obj map[string]json.RawMessage, keys ...string) (value, field string, ok bool) {
	for _, k := range keys {
		raw, present := obj[k]
		if !present {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s, k, true
		}
	}
	return "", "", false
}

// firstTime returns the first of keys holding a timestamp, either RFC 3339
// text or epoch milliseconds.
func firstTime(obj map[string]json.RawMessage, keys ...string) (*time.Time, string) {
	for _, k := range keys {
		raw, present := obj[k]
		if !present {
			continue
		}

		var s string
		if json.Unmarshal(raw, &s) == nil {
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return &t, k
			}
			if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
				t := time.UnixMilli(ms).UTC()
				return &t, k
			}
			continue
		}

		var n json.Number
		if json.Unmarshal(raw, &n) == nil {
			if ms, err := n.Int64(); err == nil {
				t := time.UnixMilli(ms).UTC()
				return &t, k
			}
		}
	}
	return nil, ""
}

// truncate shortens s to at most n characters.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
