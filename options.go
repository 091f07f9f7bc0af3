package daystatus

import (
	"errors"
	"log/slog"
	"time"
)

const (
	// DefaultPrimaryKey is the substrate key the document is written to.
	DefaultPrimaryKey = "sportschool_daily_status"

	// DefaultLegacyKey is read when the primary key is empty.
	DefaultLegacyKey = "sportschool_status"

	defaultRetentionDays = 30
	defaultSweepInterval = 30 * time.Minute
)

// storeConfig holds mutable state during Store construction.
type storeConfig struct {
	substrate      Substrate
	courses        []Course
	retentionDays  int
	sweepInterval  time.Duration
	logger         *slog.Logger
	now            func() time.Time
	location       *time.Location
	primaryKey     string
	legacyKey      string
	sync           bool
	eventCallbacks []func(Event)
}

// Option is a function that configures a [Store] during construction.
//
// Options return an error if validation fails.
type Option func(*storeConfig) error

// WithSubstrate sets the storage the store persists to.
//
// If the substrate also implements [Notifier], the store follows writes made
// by other instances sharing it. Defaults to a fresh, unshared
// [MemoryStorage] tab, which does not survive the process.
//
// Returns an error if s is nil.
func WithSubstrate(s Substrate) Option {
	return func(cfg *storeConfig) error {
		if s == nil {
			return errors.New("substrate cannot be nil")
		}
		cfg.substrate = s
		return nil
	}
}

// WithCourses sets the configured courses, replacing [DefaultCourses].
//
// Example:
//
//	kids, _ := daystatus.NewCourse("kids", "Kids")
//	store, err := daystatus.New(daystatus.WithCourses(kids))
func WithCourses(courses ...Course) Option {
	return func(cfg *storeConfig) error {
		cfg.courses = append([]Course(nil), courses...)
		return nil
	}
}

// WithRetentionDays sets how many days of past records the sweep keeps.
// A record for a date exactly days before today is kept. Defaults to 30.
//
// Returns an error if days is zero or negative.
func WithRetentionDays(days int) Option {
	return func(cfg *storeConfig) error {
		if days <= 0 {
			return errors.New("retention days must be positive")
		}
		cfg.retentionDays = days
		return nil
	}
}

// WithSweepInterval sets how often expired records are removed in the
// background. Zero disables the background sweep; [Store.Sweep] can still
// be called directly. Defaults to 30 minutes.
//
// Returns an error if d is negative.
func WithSweepInterval(d time.Duration) Option {
	return func(cfg *storeConfig) error {
		if d < 0 {
			return errors.New("sweep interval cannot be negative")
		}
		cfg.sweepInterval = d
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the store.
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *storeConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithClock replaces time.Now as the source of the current time. Useful in
// tests.
//
// Returns an error if now is nil.
func WithClock(now func() time.Time) Option {
	return func(cfg *storeConfig) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		cfg.now = now
		return nil
	}
}

// WithLocation sets the time zone that decides which calendar day "today"
// is. Defaults to time.Local.
//
// Returns an error if loc is nil.
func WithLocation(loc *time.Location) Option {
	return func(cfg *storeConfig) error {
		if loc == nil {
			return errors.New("location cannot be nil")
		}
		cfg.location = loc
		return nil
	}
}

// WithKeys sets the substrate keys of the document. legacy may be empty to
// disable the fallback read.
//
// Returns an error if primary is empty or equal to legacy.
func WithKeys(primary, legacy string) Option {
	return func(cfg *storeConfig) error {
		if primary == "" {
			return errors.New("primary key cannot be empty")
		}
		if primary == legacy {
			return errors.New("primary and legacy key must differ")
		}
		cfg.primaryKey = primary
		cfg.legacyKey = legacy
		return nil
	}
}

// WithSync controls whether the store follows writes made by other
// instances when its substrate implements [Notifier]. Enabled by default.
func WithSync(enabled bool) Option {
	return func(cfg *storeConfig) error {
		cfg.sync = enabled
		return nil
	}
}

// WithEventCallback registers a function to be called for every [Event].
//
// Multiple callbacks may be registered; they execute in registration order,
// synchronously, after the change is visible through the store and outside
// the store's lock. Callbacks must not block. Panics within callbacks are
// recovered and logged.
//
// Nil callbacks are silently ignored.
func WithEventCallback(cb func(Event)) Option {
	return func(cfg *storeConfig) error {
		if cb == nil {
			return nil
		}
		cfg.eventCallbacks = append(cfg.eventCallbacks, cb)
		return nil
	}
}
