// Package config provides file configuration for the daystatus binary.
//
// This package enables running the status store as a standalone service
// with a configuration file, as an alternative to the programmatic SDK
// approach. Files are YAML unless their name ends in ".toml".
//
// Example configuration:
//
//	title: Riverside Sports School
//	timezone: Europe/Berlin
//	retention_days: 30
//	sweep_interval: 30m
//
//	storage:
//	  driver: bolt
//	  path: ${DAYSTATUS_DATA:-./daystatus.db}
//
//	server:
//	  port: 8080
//
//	courses:
//	  - id: kids
//	    name: Kids (6-10)
//	    time: 16:00-17:00
//	  - id: adults
//	    name: Adults
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/daystatus"
)

const (
	defaultTitle           = "Training Status"
	defaultPort            = 8080
	defaultRetentionDays   = 30
	defaultSweepInterval   = 30 * time.Minute
	defaultShutdownTimeout = 10 * time.Second

	// minSweepInterval keeps the sweep from rewriting the document in a
	// tight loop.
	minSweepInterval = time.Second
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverBolt   = "bolt"
	DriverRedis  = "redis"
)

// Config is the root configuration structure.
//
// It maps directly to the configuration file structure.
// Use [Load], [Parse] or [ParseTOML] to create a Config.
type Config struct {
	// Title is the dashboard title. Defaults to "Training Status".
	Title string `yaml:"title" toml:"title"`

	// Timezone is the IANA zone deciding which day "today" is.
	// Empty means the host's local zone.
	Timezone string `yaml:"timezone" toml:"timezone"`

	// RetentionDays is how many past days of records are kept. Defaults to 30.
	RetentionDays int `yaml:"retention_days" toml:"retention_days"`

	// SweepInterval is the time between expiry sweeps.
	// Accepts duration strings like "30m" or "1h". Defaults to 30m.
	SweepInterval Duration `yaml:"sweep_interval" toml:"sweep_interval"`

	Storage StorageConfig `yaml:"storage" toml:"storage"`
	Server  ServerConfig  `yaml:"server" toml:"server"`

	// Courses lists the training groups. Empty means the built-in defaults.
	Courses []CourseConfig `yaml:"courses" toml:"courses"`
}

// StorageConfig selects and configures the substrate.
type StorageConfig struct {
	// Driver is "memory", "file", "bolt" or "redis". Defaults to "memory".
	Driver string `yaml:"driver" toml:"driver"`

	// Path is the directory (file) or database file (bolt).
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	Path string `yaml:"path" toml:"path"`

	// PrimaryKey and LegacyKey override the document keys.
	PrimaryKey string `yaml:"primary_key" toml:"primary_key"`
	LegacyKey  string `yaml:"legacy_key" toml:"legacy_key"`

	// Capacity is the byte budget of the memory driver. 0 means 5 MiB.
	Capacity int `yaml:"capacity" toml:"capacity"`

	// PollInterval is how often the file driver checks for external
	// writes. Defaults to 2s.
	PollInterval Duration `yaml:"poll_interval" toml:"poll_interval"`

	Redis RedisConfig `yaml:"redis" toml:"redis"`
}

// RedisConfig configures the redis driver. Addr and Password support
// environment variable substitution.
type RedisConfig struct {
	Addr     string `yaml:"addr" toml:"addr"`
	Password string `yaml:"password" toml:"password"`
	DB       int    `yaml:"db" toml:"db"`
	Prefix   string `yaml:"prefix" toml:"prefix"`
	Channel  string `yaml:"channel" toml:"channel"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port" toml:"port"`

	// ShutdownTimeout bounds graceful shutdown. Defaults to 10s.
	ShutdownTimeout Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// CourseConfig defines one training group.
type CourseConfig struct {
	ID          string `yaml:"id" toml:"id"`
	Name        string `yaml:"name" toml:"name"`
	Time        string `yaml:"time" toml:"time"`
	Description string `yaml:"description" toml:"description"`
}

// Duration wraps time.Duration for YAML and TOML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// UnmarshalText implements encoding.TextUnmarshaler, which go-toml uses.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a configuration file.
//
// Files ending in ".toml" are parsed as TOML, everything else as YAML.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return ParseTOML(data)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in the storage path and the redis
// address and password. Defaults are applied before validation.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return finish(&cfg)
}

// ParseTOML parses TOML configuration data. It applies the same expansion,
// defaults and validation as [Parse].
func ParseTOML(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.applyDefaults()
	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Title == "" {
		c.Title = defaultTitle
	}
	if c.RetentionDays == 0 {
		c.RetentionDays = defaultRetentionDays
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = Duration(defaultSweepInterval)
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverMemory
	}
	c.Storage.Driver = strings.ToLower(c.Storage.Driver)
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(defaultShutdownTimeout)
	}
}

// Location returns the configured time zone, or time.Local when none is set.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if _, err := c.Location(); err != nil {
		return err
	}

	if c.RetentionDays < 0 {
		return fmt.Errorf("retention_days must be positive, got %d", c.RetentionDays)
	}
	if c.SweepInterval.Duration() < minSweepInterval {
		return fmt.Errorf("sweep_interval must be at least %s, got %s", minSweepInterval, c.SweepInterval.Duration())
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() < 0 {
		return fmt.Errorf("server.shutdown_timeout cannot be negative, got %s", c.Server.ShutdownTimeout.Duration())
	}

	if err := c.Storage.expandAndValidate(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Courses))
	for i, course := range c.Courses {
		if course.ID == "" {
			return fmt.Errorf("courses[%d]: id is required", i)
		}
		if course.Name == "" {
			return fmt.Errorf("courses[%d] (%s): name is required", i, course.ID)
		}
		if seen[course.ID] {
			return fmt.Errorf("courses[%d] (%s): duplicate id", i, course.ID)
		}
		seen[course.ID] = true
	}

	return nil
}

// Keys returns the document keys with unset ones resolved to the store
// defaults.
func (s *StorageConfig) Keys() (primary, legacy string) {
	primary, legacy = s.PrimaryKey, s.LegacyKey
	if primary == "" {
		primary = daystatus.DefaultPrimaryKey
	}
	if legacy == "" {
		legacy = daystatus.DefaultLegacyKey
	}
	return primary, legacy
}

func (s *StorageConfig) expandAndValidate() error {
	expanded, err := expandEnvVars(s.Path)
	if err != nil {
		return fmt.Errorf("storage.path: %w", err)
	}
	s.Path = expanded

	if primary, legacy := s.Keys(); primary == legacy {
		return fmt.Errorf("storage.primary_key and storage.legacy_key must differ, both resolve to %q", primary)
	}
	if s.Capacity < 0 {
		return fmt.Errorf("storage.capacity cannot be negative, got %d", s.Capacity)
	}
	if s.PollInterval.Duration() < 0 {
		return fmt.Errorf("storage.poll_interval cannot be negative, got %s", s.PollInterval.Duration())
	}

	switch s.Driver {
	case DriverMemory:
	case DriverFile, DriverBolt:
		if s.Path == "" {
			return fmt.Errorf("storage.path is required for the %s driver", s.Driver)
		}
	case DriverRedis:
		addr, err := expandEnvVars(s.Redis.Addr)
		if err != nil {
			return fmt.Errorf("storage.redis.addr: %w", err)
		}
		s.Redis.Addr = addr
		password, err := expandEnvVars(s.Redis.Password)
		if err != nil {
			return fmt.Errorf("storage.redis.password: %w", err)
		}
		s.Redis.Password = password

		if s.Redis.Addr == "" {
			return errors.New("storage.redis.addr is required for the redis driver")
		}
		if s.Redis.DB < 0 {
			return fmt.Errorf("storage.redis.db cannot be negative, got %d", s.Redis.DB)
		}
	default:
		return fmt.Errorf("storage.driver must be memory, file, bolt or redis, got %q", s.Driver)
	}

	return nil
}
