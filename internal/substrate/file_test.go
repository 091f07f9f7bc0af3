package substrate

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewFile_EmptyDir(t *testing.T) {
	if _, err := NewFile("  ", 0); err == nil {
		t.Fatal("NewFile(\"  \") error = nil, want error")
	}
}

func TestFile_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested")

	f, err := NewFile(dir, 0)
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}

	if _, ok, err := f.Get(ctx, "doc"); ok || err != nil {
		t.Fatalf("Get() missing = %v %v, want false nil", ok, err)
	}

	if err := f.Set(ctx, "doc", `{"a":1}`); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "doc.json"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != `{"a":1}` {
		t.Errorf("file content = %q", data)
	}

	v, ok, err := f.Get(ctx, "doc")
	if err != nil || !ok || v != `{"a":1}` {
		t.Errorf("Get() = %q %v %v", v, ok, err)
	}

	if err := f.Remove(ctx, "doc"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := f.Remove(ctx, "doc"); err != nil {
		t.Errorf("second Remove() error = %v", err)
	}
	if _, ok, _ := f.Get(ctx, "doc"); ok {
		t.Error("Get() after Remove ok = true")
	}
}

func TestFile_SetLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	f, _ := NewFile(dir, 0)

	for i := 0; i < 5; i++ {
		if err := f.Set(ctx, "doc", "v"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != "doc.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("dir entries = %v, want [doc.json]", names)
	}
}

func TestFile_WatchReportsExternalWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	a, _ := NewFile(dir, 10*time.Millisecond)
	b, _ := NewFile(dir, 10*time.Millisecond)

	ch, err := b.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := a.Set(ctx, "doc", "v1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	select {
	case c := <-ch:
		if c.Key != "doc" || c.Value != "v1" {
			t.Errorf("change = %+v, want doc=v1", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}

	if err := a.Remove(ctx, "doc"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	select {
	case c := <-ch:
		if !c.Removed {
			t.Errorf("change = %+v, want removal", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no removal reported")
	}
}

func TestFile_WatchSkipsOwnWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f, _ := NewFile(t.TempDir(), 10*time.Millisecond)
	ch, _ := f.Watch(ctx)

	if err := f.Set(ctx, "doc", "mine"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	select {
	case c := <-ch:
		t.Errorf("own write reported: %+v", c)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFile_WatchIgnoresPreexistingFiles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "doc.json"), []byte("old"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	f, _ := NewFile(dir, 10*time.Millisecond)
	ch, _ := f.Watch(ctx)

	select {
	case c := <-ch:
		t.Errorf("pre-existing file reported: %+v", c)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"daily_status", "daily_status"},
		{"a/b", "a_b"},
		{"../etc", "___etc"},
		{"key-1", "key-1"},
	}
	for _, tt := range tests {
		if got := sanitizeKey(tt.in); got != tt.want {
			t.Errorf("sanitizeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
