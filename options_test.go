package daystatus

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestOptions_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		opt     Option
		wantErr string
	}{
		{"nil substrate", WithSubstrate(nil), "substrate cannot be nil"},
		{"zero retention", WithRetentionDays(0), "retention days must be positive"},
		{"negative sweep", WithSweepInterval(-time.Second), "sweep interval cannot be negative"},
		{"nil logger", WithLogger(nil), "logger cannot be nil"},
		{"nil clock", WithClock(nil), "clock cannot be nil"},
		{"nil location", WithLocation(nil), "location cannot be nil"},
		{"empty primary key", WithKeys("", "legacy"), "primary key cannot be empty"},
		{"same keys", WithKeys("doc", "doc"), "must differ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opt)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("New() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestWithEventCallback_NilIgnored(t *testing.T) {
	s, err := New(WithEventCallback(nil))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	if len(s.callbacks) != 0 {
		t.Errorf("len(callbacks) = %d, want 0", len(s.callbacks))
	}
}

func TestWithKeys(t *testing.T) {
	ctx := context.Background()
	tab := NewMemoryStorage(0).Tab()
	_ = tab.Set(ctx, "old_doc", `{"2024-03-01":{"status":"cancelled"}}`)

	s := newTestStore(t, WithSubstrate(tab), WithKeys("new_doc", "old_doc"), WithSync(false))
	if !s.Exists("2024-03-01") {
		t.Fatal("legacy key not read")
	}

	s.Save(ctx, RecordInput{}, "2024-03-02")
	if _, ok, _ := tab.Get(ctx, "new_doc"); !ok {
		t.Error("primary key not written")
	}
	if _, ok, _ := tab.Get(ctx, DefaultPrimaryKey); ok {
		t.Error("default key written despite WithKeys")
	}
}

func TestWithSync_DisablesFollowing(t *testing.T) {
	mem := NewMemoryStorage(0)
	a := newTestStore(t, WithSubstrate(mem.Tab()))
	b := newTestStore(t, WithSubstrate(mem.Tab()), WithSync(false))

	a.Save(context.Background(), RecordInput{GlobalStatus: StatusCancelled}, "2024-03-16")
	time.Sleep(50 * time.Millisecond)

	if b.Exists("2024-03-16") {
		t.Error("store with sync disabled adopted an external write")
	}
}
