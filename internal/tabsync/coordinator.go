// Package tabsync keeps a store's in-memory copy in step with writes made
// by other instances sharing the same substrate.
//
// The [Coordinator] consumes a [substrate.Notifier] stream, filters it down
// to the document key, and hands each new document value to an [ApplyFunc].
// It only ever reacts: writing back to the substrate would make every
// instance echo every other instance's writes.
package tabsync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jpalmerr/daystatus/internal/substrate"
)

// State is the coordinator's reconciliation state.
type State int

const (
	// Idle means no external change is being applied.
	Idle State = iota

	// Reconciling means an external document is being applied.
	Reconciling
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Reconciling:
		return "reconciling"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ApplyFunc adopts an external document. value is the raw document text,
// or "" when removed is true. It returns the number of adopted records.
// Implementations must leave their state untouched when they return an
// error.
type ApplyFunc func(value string, removed bool) (count int, err error)

// SyncParseError reports an external document that could not be adopted.
type SyncParseError struct {
	Key    string
	Origin string
	Err    error
}

func (e *SyncParseError) Error() string {
	return fmt.Sprintf("sync %s: %v", e.Key, e.Err)
}

func (e *SyncParseError) Unwrap() error {
	return e.Err
}

// Coordinator applies external changes for one key.
type Coordinator struct {
	notifier substrate.Notifier
	key      string
	apply    ApplyFunc
	logger   *slog.Logger

	// serializes Deliver so reconciliations never interleave
	applyMu sync.Mutex

	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	stopped bool
	applied int
	failed  int
}

// New creates a [Coordinator] for key. notifier may be nil, in which case
// Start does nothing and changes can only arrive through Deliver.
func New(notifier substrate.Notifier, key string, apply ApplyFunc, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		notifier: notifier,
		key:      key,
		apply:    apply,
		logger:   logger,
	}
}

// Start subscribes to the notifier and processes changes in a background
// goroutine until Stop is called or ctx is cancelled. Start is idempotent.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started || c.stopped || c.notifier == nil {
		c.mu.Unlock()
		return nil
	}
	c.started = true

	watchCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	changes, err := c.notifier.Watch(watchCtx)
	if err != nil {
		cancel()
		c.mu.Lock()
		c.started = false
		c.mu.Unlock()
		return fmt.Errorf("watch substrate: %w", err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for change := range changes {
			c.Deliver(change)
		}
	}()

	return nil
}

// Stop ends the watch and waits for the processing goroutine to exit.
// Stop is idempotent.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.stopped {
		c.stopped = true
		if c.cancel != nil {
			c.cancel()
		}
	}
	c.mu.Unlock()

	c.wg.Wait()
}

// State returns the current reconciliation state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stats returns how many changes were applied and how many were rejected.
func (c *Coordinator) Stats() (applied, failed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applied, c.failed
}

// Deliver processes one change synchronously. Changes for other keys are
// ignored. It reports whether the change was adopted.
func (c *Coordinator) Deliver(change substrate.Change) bool {
	if change.Key != c.key {
		return false
	}

	c.applyMu.Lock()
	defer c.applyMu.Unlock()

	c.setState(Reconciling)
	defer c.setState(Idle)

	count, err := c.apply(change.Value, change.Removed)
	if err != nil {
		perr := &SyncParseError{Key: change.Key, Origin: change.Origin, Err: err}
		c.logger.Warn("external change rejected",
			"key", change.Key,
			"origin", change.Origin,
			"error", perr,
		)
		c.mu.Lock()
		c.failed++
		c.mu.Unlock()
		return false
	}

	c.logger.Debug("external change applied",
		"key", change.Key,
		"origin", change.Origin,
		"count", count,
		"removed", change.Removed,
	)
	c.mu.Lock()
	c.applied++
	c.mu.Unlock()
	return true
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
