package config

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/jpalmerr/daystatus"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildCourses_Defaults(t *testing.T) {
	courses, err := BuildCourses(&Config{})
	if err != nil {
		t.Fatalf("BuildCourses() error = %v", err)
	}
	if len(courses) != len(daystatus.DefaultCourses()) {
		t.Errorf("len(courses) = %d, want defaults", len(courses))
	}
}

func TestBuildCourses_Configured(t *testing.T) {
	cfg := &Config{Courses: []CourseConfig{
		{ID: "swim", Name: "Swimming", Time: "07:00-08:00", Description: "Pool lanes 1-4"},
		{ID: "run", Name: "Running"},
	}}

	courses, err := BuildCourses(cfg)
	if err != nil {
		t.Fatalf("BuildCourses() error = %v", err)
	}
	if len(courses) != 2 {
		t.Fatalf("len(courses) = %d, want 2", len(courses))
	}
	if c := courses[0]; c.ID() != "swim" || c.Time() != "07:00-08:00" || c.Description() != "Pool lanes 1-4" {
		t.Errorf("courses[0] = %+v", c)
	}
	if courses[1].Time() != "" {
		t.Errorf("courses[1].Time() = %q, want empty", courses[1].Time())
	}
}

func TestBuildCourses_InvalidID(t *testing.T) {
	cfg := &Config{Courses: []CourseConfig{{ID: "Bad ID", Name: "Bad"}}}

	_, err := BuildCourses(cfg)
	if err == nil || !strings.Contains(err.Error(), "courses[0]") {
		t.Errorf("BuildCourses() error = %v, want indexed course error", err)
	}
}

func TestBuild_NilLogger(t *testing.T) {
	if _, err := Build(&Config{}, nil); err == nil {
		t.Error("Build() error = nil, want error for nil logger")
	}
}

func TestBuild_Drivers(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()

	tests := []struct {
		name    string
		storage StorageConfig
	}{
		{"memory", StorageConfig{Driver: DriverMemory}},
		{"file", StorageConfig{Driver: DriverFile, Path: filepath.Join(dir, "files")}},
		{"bolt", StorageConfig{Driver: DriverBolt, Path: filepath.Join(dir, "status.db")}},
		{"redis", StorageConfig{Driver: DriverRedis, Redis: RedisConfig{Addr: mr.Addr()}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Storage: tt.storage, RetentionDays: 30, SweepInterval: Duration(defaultSweepInterval)}

			built, err := Build(cfg, testLogger())
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			defer built.Close()

			store, err := daystatus.New(built.Options...)
			if err != nil {
				t.Fatalf("daystatus.New() error = %v", err)
			}
			defer store.Close()

			ctx := context.Background()
			if err := store.Init(ctx); err != nil {
				t.Fatalf("Init() error = %v", err)
			}
			res := store.Save(ctx, daystatus.RecordInput{GlobalStatus: daystatus.StatusIndoor}, "")
			if !res.Success {
				t.Fatalf("Save() failed: %v", res.Errors)
			}

			value, ok, err := built.Substrate.Get(ctx, daystatus.DefaultPrimaryKey)
			if err != nil || !ok {
				t.Fatalf("substrate Get() = %v, %v", ok, err)
			}
			if !strings.Contains(value, `"indoor"`) {
				t.Errorf("stored document = %s, want the saved record", value)
			}
		})
	}
}

func TestBuild_CustomKeys(t *testing.T) {
	cfg := &Config{
		RetentionDays: 30,
		SweepInterval: Duration(defaultSweepInterval),
		Storage:       StorageConfig{Driver: DriverMemory, PrimaryKey: "custom"},
	}

	built, err := Build(cfg, testLogger())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer built.Close()

	store, err := daystatus.New(built.Options...)
	if err != nil {
		t.Fatalf("daystatus.New() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	_ = store.Init(ctx)
	store.Save(ctx, daystatus.RecordInput{}, "")

	if _, ok, _ := built.Substrate.Get(ctx, "custom"); !ok {
		t.Error("custom primary key not written")
	}
}

func TestBuild_CustomPrimaryKeepsLegacyFallback(t *testing.T) {
	cfg := &Config{
		RetentionDays: 30,
		SweepInterval: Duration(defaultSweepInterval),
		Storage:       StorageConfig{Driver: DriverMemory, PrimaryKey: "custom"},
	}

	built, err := Build(cfg, testLogger())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer built.Close()

	ctx := context.Background()
	if err := built.Substrate.Set(ctx, daystatus.DefaultLegacyKey, `{"2024-03-01":{"status":"cancelled"}}`); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	store, err := daystatus.New(built.Options...)
	if err != nil {
		t.Fatalf("daystatus.New() error = %v", err)
	}
	defer store.Close()

	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if !store.Exists("2024-03-01") {
		t.Error("legacy document not read with only primary_key set")
	}
}

func TestStorageConfig_Keys(t *testing.T) {
	tests := []struct {
		name        string
		sc          StorageConfig
		wantPrimary string
		wantLegacy  string
	}{
		{"defaults", StorageConfig{}, daystatus.DefaultPrimaryKey, daystatus.DefaultLegacyKey},
		{"primary only", StorageConfig{PrimaryKey: "p"}, "p", daystatus.DefaultLegacyKey},
		{"legacy only", StorageConfig{LegacyKey: "l"}, daystatus.DefaultPrimaryKey, "l"},
		{"both", StorageConfig{PrimaryKey: "p", LegacyKey: "l"}, "p", "l"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary, legacy := tt.sc.Keys()
			if primary != tt.wantPrimary || legacy != tt.wantLegacy {
				t.Errorf("Keys() = %q, %q, want %q, %q", primary, legacy, tt.wantPrimary, tt.wantLegacy)
			}
		})
	}
}

func TestBuild_RedisUnreachable(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{Driver: DriverRedis, Redis: RedisConfig{Addr: "127.0.0.1:1"}}}
	if _, err := Build(cfg, testLogger()); err == nil {
		t.Error("Build() error = nil, want connection error")
	}
}

func TestBuilt_CloseNil(t *testing.T) {
	var b *Built
	if err := b.Close(); err != nil {
		t.Errorf("Close() on nil = %v, want nil", err)
	}
}
