package daystatus

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// ValidationResult is the outcome of [Validate]. Errors is empty when Valid
// is true.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidationError is returned through [SaveResult.Err] when a record fails
// validation.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "invalid record: " + strings.Join(e.Errors, "; ")
}

var recordValidator = newRecordValidator()

func newRecordValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// registration only fails for an empty tag or nil func
	_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		return Status(fl.Field().String()).Valid()
	})
	return v
}

// Validate checks a normalized record against the schema and the configured
// courses. It never mutates r. Errors are sorted by field path.
func Validate(r Record, courses []Course) ValidationResult {
	var msgs []string

	if err := recordValidator.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return ValidationResult{Errors: []string{err.Error()}}
		}
		for _, fe := range verrs {
			msgs = append(msgs, describeFieldError(fe))
		}
	}

	configured := make(map[string]bool, len(courses))
	for _, c := range courses {
		configured[c.ID()] = true
		if _, ok := r.Courses[c.ID()]; !ok {
			msgs = append(msgs, fmt.Sprintf("courses[%s]: missing entry", c.ID()))
		}
	}
	for id := range r.Courses {
		if !configured[id] {
			msgs = append(msgs, fmt.Sprintf("courses[%s]: unknown course", id))
		}
	}

	if len(msgs) == 0 {
		return ValidationResult{Valid: true}
	}
	sort.Strings(msgs)
	return ValidationResult{Errors: msgs}
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Record.")

	switch fe.Tag() {
	case "status":
		return fmt.Sprintf("%s: %q is not a valid status", field, fe.Value())
	case "max":
		got := 0
		if s, ok := fe.Value().(string); ok {
			got = utf8.RuneCountInString(s)
		}
		return fmt.Sprintf("%s: must be at most %s characters, got %d", field, fe.Param(), got)
	case "required", "datetime":
		return fmt.Sprintf("%s: must be a date in YYYY-MM-DD form", field)
	default:
		return fmt.Sprintf("%s: failed %s check", field, fe.Tag())
	}
}
