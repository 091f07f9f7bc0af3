package tabsync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jpalmerr/daystatus/internal/substrate"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder is an ApplyFunc that remembers what it was given.
type recorder struct {
	mu      sync.Mutex
	values  []string
	removed []bool
	err     error
	states  []State
	coord   *Coordinator
}

func (r *recorder) apply(value string, removed bool) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.coord != nil {
		r.states = append(r.states, r.coord.State())
	}
	if r.err != nil {
		return 0, r.err
	}
	r.values = append(r.values, value)
	r.removed = append(r.removed, removed)
	return len(value), nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

func TestCoordinator_DeliverMatchingKey(t *testing.T) {
	rec := &recorder{}
	c := New(nil, "doc", rec.apply, testLogger())
	rec.coord = c

	if !c.Deliver(substrate.Change{Key: "doc", Value: "v1"}) {
		t.Fatal("Deliver() = false, want true")
	}
	if rec.count() != 1 || rec.values[0] != "v1" {
		t.Errorf("apply got %v, want [v1]", rec.values)
	}
	if len(rec.states) != 1 || rec.states[0] != Reconciling {
		t.Errorf("state during apply = %v, want reconciling", rec.states)
	}
	if c.State() != Idle {
		t.Errorf("State() after Deliver = %v, want idle", c.State())
	}
	if applied, failed := c.Stats(); applied != 1 || failed != 0 {
		t.Errorf("Stats() = %d, %d, want 1, 0", applied, failed)
	}
}

func TestCoordinator_IgnoresOtherKeys(t *testing.T) {
	rec := &recorder{}
	c := New(nil, "doc", rec.apply, testLogger())

	if c.Deliver(substrate.Change{Key: "other", Value: "v"}) {
		t.Error("Deliver() for other key = true, want false")
	}
	if rec.count() != 0 {
		t.Errorf("apply called %d times, want 0", rec.count())
	}
}

func TestCoordinator_PassesRemovals(t *testing.T) {
	rec := &recorder{}
	c := New(nil, "doc", rec.apply, testLogger())

	c.Deliver(substrate.Change{Key: "doc", Removed: true})
	if rec.count() != 1 || !rec.removed[0] || rec.values[0] != "" {
		t.Errorf("apply got values %v removed %v, want one removal", rec.values, rec.removed)
	}
}

func TestCoordinator_ApplyErrorIsContained(t *testing.T) {
	rec := &recorder{err: errors.New("bad json")}
	c := New(nil, "doc", rec.apply, testLogger())

	if c.Deliver(substrate.Change{Key: "doc", Value: "{"}) {
		t.Error("Deliver() = true, want false on apply error")
	}
	if c.State() != Idle {
		t.Errorf("State() = %v, want idle after failure", c.State())
	}
	if applied, failed := c.Stats(); applied != 0 || failed != 1 {
		t.Errorf("Stats() = %d, %d, want 0, 1", applied, failed)
	}
}

func TestCoordinator_StartConsumesNotifier(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mem := substrate.NewMemory(0)
	writer, reader := mem.Tab(), mem.Tab()

	rec := &recorder{}
	c := New(reader, "doc", rec.apply, testLogger())
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop()

	// a second Start is a no-op
	if err := c.Start(ctx); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}

	_ = writer.Set(ctx, "doc", "external")
	_ = writer.Set(ctx, "unrelated", "x")

	deadline := time.After(time.Second)
	for rec.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("change not applied")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if rec.values[0] != "external" {
		t.Errorf("applied %q, want external", rec.values[0])
	}
}

func TestCoordinator_OwnWritesNotApplied(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tab := substrate.NewMemory(0).Tab()
	rec := &recorder{}
	c := New(tab, "doc", rec.apply, testLogger())
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop()

	_ = tab.Set(ctx, "doc", "mine")
	time.Sleep(50 * time.Millisecond)

	if rec.count() != 0 {
		t.Errorf("own write applied %d times, want 0", rec.count())
	}
}

func TestCoordinator_StopIdempotent(t *testing.T) {
	tab := substrate.NewMemory(0).Tab()
	c := New(tab, "doc", (&recorder{}).apply, testLogger())

	c.Stop() // before Start
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	c.Stop()
	c.Stop()
}

type failingNotifier struct{}

func (failingNotifier) Watch(context.Context) (<-chan substrate.Change, error) {
	return nil, errors.New("no watch")
}

func TestCoordinator_StartWatchError(t *testing.T) {
	c := New(failingNotifier{}, "doc", (&recorder{}).apply, testLogger())
	if err := c.Start(context.Background()); err == nil {
		t.Fatal("Start() error = nil, want watch error")
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{Idle, "idle"},
		{Reconciling, "reconciling"},
		{State(9), "State(9)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.s), got, tt.want)
		}
	}
}
