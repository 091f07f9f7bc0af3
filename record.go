package daystatus

import (
	"time"
)

// SchemaVersion is the record schema written by this package. Records with a
// lower or missing version are migrated on load.
const SchemaVersion = 2

// DateLayout is the format of every date key: a calendar day in the store's
// location.
const DateLayout = "2006-01-02"

const (
	// MaxGlobalMessage is the longest accepted global message, in characters.
	MaxGlobalMessage = 500

	// MaxCourseMessage is the longest accepted course message, in characters.
	MaxCourseMessage = 200
)

// Record is the operating status of one calendar day.
//
// A stored Record always has an entry in Courses for every configured
// course. LastUpdated is nil only for default records that were never saved.
type Record struct {
	Date          string                  `json:"date" validate:"required,datetime=2006-01-02"`
	GlobalStatus  Status                  `json:"globalStatus" validate:"status"`
	GlobalMessage string                  `json:"globalMessage" validate:"max=500"`
	Courses       map[string]CourseStatus `json:"courses" validate:"dive"`
	LastUpdated   *time.Time              `json:"lastUpdated"`
	Version       int                     `json:"version"`
}

// CourseStatus is one course's status within a [Record]. Name and Time are
// copied from the course configuration for display.
type CourseStatus struct {
	Status  Status `json:"status" validate:"status"`
	Message string `json:"message" validate:"max=200"`
	Name    string `json:"name,omitempty"`
	Time    string `json:"time,omitempty"`
}

// IsDefault reports whether r was never saved.
func (r Record) IsDefault() bool {
	return r.LastUpdated == nil
}

// Input returns the editable part of r, suitable for passing back to
// [Store.Save].
func (r Record) Input() RecordInput {
	in := RecordInput{
		GlobalStatus:  r.GlobalStatus,
		GlobalMessage: r.GlobalMessage,
		Courses:       make(map[string]CourseInput, len(r.Courses)),
	}
	for id, c := range r.Courses {
		in.Courses[id] = CourseInput{Status: c.Status, Message: c.Message}
	}
	return in
}

// clone returns a deep copy so callers never share the store's maps.
func (r Record) clone() Record {
	out := r
	if r.Courses != nil {
		out.Courses = make(map[string]CourseStatus, len(r.Courses))
		for id, c := range r.Courses {
			out.Courses[id] = c
		}
	}
	if r.LastUpdated != nil {
		t := *r.LastUpdated
		out.LastUpdated = &t
	}
	return out
}

// RecordInput is caller-supplied data for a save. Every field is optional:
// a missing global status means scheduled, and a missing course entry takes
// the global status.
type RecordInput struct {
	GlobalStatus  Status                 `json:"globalStatus,omitempty"`
	GlobalMessage string                 `json:"globalMessage,omitempty"`
	Courses       map[string]CourseInput `json:"courses,omitempty"`
}

// CourseInput is caller-supplied data for one course.
type CourseInput struct {
	Status  Status `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}
