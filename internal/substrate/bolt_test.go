package substrate

import (
	"context"
	"path/filepath"
	"testing"
)

func TestBolt_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "status.db")

	s, err := NewBolt(path)
	if err != nil {
		t.Fatalf("NewBolt() error = %v", err)
	}
	defer s.Close()

	if _, ok, err := s.Get(ctx, "doc"); ok || err != nil {
		t.Fatalf("Get() missing = %v %v, want false nil", ok, err)
	}

	if err := s.Set(ctx, "doc", "v1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, ok, err := s.Get(ctx, "doc")
	if err != nil || !ok || v != "v1" {
		t.Fatalf("Get() = %q %v %v, want v1 true nil", v, ok, err)
	}

	if err := s.Remove(ctx, "doc"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, ok, _ := s.Get(ctx, "doc"); ok {
		t.Error("Get() after Remove ok = true")
	}
}

func TestBolt_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "status.db")

	s, err := NewBolt(path)
	if err != nil {
		t.Fatalf("NewBolt() error = %v", err)
	}
	if err := s.Set(ctx, "doc", "durable"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewBolt(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	v, ok, err := reopened.Get(ctx, "doc")
	if err != nil || !ok || v != "durable" {
		t.Errorf("Get() after reopen = %q %v %v, want durable true nil", v, ok, err)
	}
}

func TestNewBolt_InvalidPath(t *testing.T) {
	_, err := NewBolt(filepath.Join(t.TempDir(), "missing", "dir", "status.db"))
	if err == nil {
		t.Fatal("NewBolt() error = nil, want error for missing directory")
	}
}
