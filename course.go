package daystatus

import (
	"errors"
	"fmt"
	"regexp"
)

// courseIDPattern restricts ids to what is safe as a JSON key, a URL query
// value and a spreadsheet header.
var courseIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Course is one statically configured training group.
//
// Course is immutable after creation via [NewCourse]. Its descriptive fields
// (name, time, description) come from configuration only; records carry a
// copy of name and time but callers cannot change them through a save.
type Course struct {
	id          string
	name        string
	time        string
	description string
}

// ID returns the course's stable identifier, used as the key in
// [Record.Courses].
func (c Course) ID() string {
	return c.id
}

// Name returns the course's display name.
func (c Course) Name() string {
	return c.name
}

// Time returns the course's usual training time, e.g. "16:00-17:00".
// Empty when not configured.
func (c Course) Time() string {
	return c.time
}

// Description returns the course's free-text description.
func (c Course) Description() string {
	return c.description
}

// courseConfig holds mutable state during course construction.
type courseConfig struct {
	time        string
	description string
}

// CourseOption is a function that configures a [Course] during construction.
type CourseOption func(*courseConfig) error

// WithCourseTime sets the usual training time shown next to the course.
func WithCourseTime(t string) CourseOption {
	return func(cfg *courseConfig) error {
		cfg.time = t
		return nil
	}
}

// WithCourseDescription sets the course's free-text description.
func WithCourseDescription(d string) CourseOption {
	return func(cfg *courseConfig) error {
		cfg.description = d
		return nil
	}
}

// NewCourse creates a [Course].
//
// The id must be lowercase letters, digits, '_' or '-', starting with a
// letter or digit. The name must not be empty.
//
// Example:
//
//	kids, err := daystatus.NewCourse("kids", "Kids (6-10)",
//	    daystatus.WithCourseTime("16:00-17:00"),
//	)
func NewCourse(id, name string, opts ...CourseOption) (Course, error) {
	if !courseIDPattern.MatchString(id) {
		return Course{}, fmt.Errorf("invalid course id %q", id)
	}
	if name == "" {
		return Course{}, errors.New("course name cannot be empty")
	}

	cfg := &courseConfig{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Course{}, err
		}
	}

	return Course{
		id:          id,
		name:        name,
		time:        cfg.time,
		description: cfg.description,
	}, nil
}

// DefaultCourses returns the school's standard training groups.
func DefaultCourses() []Course {
	return []Course{
		{id: "kids", name: "Kids (6-10)", time: "16:00-17:00"},
		{id: "juniors", name: "Juniors (11-15)", time: "17:15-18:45"},
		{id: "adults", name: "Adults", time: "19:00-20:30"},
	}
}

// validateCourses checks a course list for emptiness and duplicate ids.
func validateCourses(courses []Course) error {
	if len(courses) == 0 {
		return errors.New("at least one course is required")
	}
	seen := make(map[string]bool, len(courses))
	for _, c := range courses {
		if c.id == "" {
			return errors.New("course was not created with NewCourse")
		}
		if seen[c.id] {
			return fmt.Errorf("duplicate course id: %q", c.id)
		}
		seen[c.id] = true
	}
	return nil
}
