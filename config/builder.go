package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jpalmerr/daystatus"
)

// Built is a configuration turned into SDK values: the opened substrate and
// the options for [daystatus.New].
type Built struct {
	Substrate daystatus.Substrate
	Options   []daystatus.Option
	Courses   []daystatus.Course

	closer io.Closer
}

// Close releases the substrate, if it holds resources. Safe to call on a
// nil Built.
func (b *Built) Close() error {
	if b == nil || b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// Build opens the configured substrate and converts the rest of cfg into
// store options. The logger is passed to the store and the substrate.
//
// The caller owns the returned value and must Close it after the store.
func Build(cfg *Config, logger *slog.Logger) (*Built, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	courses, err := BuildCourses(cfg)
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	sub, closer, err := openSubstrate(cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	opts := []daystatus.Option{
		daystatus.WithSubstrate(sub),
		daystatus.WithCourses(courses...),
		daystatus.WithRetentionDays(cfg.RetentionDays),
		daystatus.WithSweepInterval(cfg.SweepInterval.Duration()),
		daystatus.WithLocation(loc),
		daystatus.WithLogger(logger),
	}
	if cfg.Storage.PrimaryKey != "" || cfg.Storage.LegacyKey != "" {
		primary, legacy := cfg.Storage.Keys()
		opts = append(opts, daystatus.WithKeys(primary, legacy))
	}

	return &Built{
		Substrate: sub,
		Options:   opts,
		Courses:   courses,
		closer:    closer,
	}, nil
}

// BuildCourses converts the configured courses into SDK courses. An empty
// list yields [daystatus.DefaultCourses].
func BuildCourses(cfg *Config) ([]daystatus.Course, error) {
	if len(cfg.Courses) == 0 {
		return daystatus.DefaultCourses(), nil
	}

	courses := make([]daystatus.Course, 0, len(cfg.Courses))
	for i, cc := range cfg.Courses {
		var opts []daystatus.CourseOption
		if cc.Time != "" {
			opts = append(opts, daystatus.WithCourseTime(cc.Time))
		}
		if cc.Description != "" {
			opts = append(opts, daystatus.WithCourseDescription(cc.Description))
		}

		c, err := daystatus.NewCourse(cc.ID, cc.Name, opts...)
		if err != nil {
			return nil, fmt.Errorf("courses[%d]: %w", i, err)
		}
		courses = append(courses, c)
	}
	return courses, nil
}

// openSubstrate opens the storage named by sc.Driver.
func openSubstrate(sc StorageConfig, logger *slog.Logger) (daystatus.Substrate, io.Closer, error) {
	switch sc.Driver {
	case DriverMemory, "":
		tab := daystatus.NewMemoryStorage(sc.Capacity).Tab()
		return tab, tab, nil

	case DriverFile:
		fs, err := daystatus.NewFileStorage(sc.Path, sc.PollInterval.Duration())
		if err != nil {
			return nil, nil, err
		}
		return fs, nil, nil

	case DriverBolt:
		db, err := daystatus.NewBoltStorage(sc.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil

	case DriverRedis:
		rdb, err := daystatus.NewRedisStorage(daystatus.RedisOptions{
			Addr:     sc.Redis.Addr,
			Password: sc.Redis.Password,
			DB:       sc.Redis.DB,
			Prefix:   sc.Redis.Prefix,
			Channel:  sc.Redis.Channel,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return rdb, rdb, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", sc.Driver)
	}
}
