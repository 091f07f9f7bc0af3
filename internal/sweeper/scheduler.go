package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Task is one unit of periodic housekeeping. It must be idempotent: runs may
// be skipped, and a run may overlap with work triggered elsewhere.
type Task func(ctx context.Context)

// Scheduler runs a [Task] once on start and then on every tick until
// stopped.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Scheduler struct {
	interval time.Duration
	task     Task
	logger   *slog.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
	runs    int
}

// New creates a [Scheduler] that runs task every interval.
//
// The scheduler must be started with [Scheduler.Start] and stopped with
// [Scheduler.Stop].
func New(interval time.Duration, task Task, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		interval: interval,
		task:     task,
		logger:   logger,
	}
}

// Start begins the loop in a background goroutine and returns immediately.
//
// The task runs once right away, then on every tick. Start is idempotent;
// if Stop was called before Start, Start is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		s.run(loopCtx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				s.run(loopCtx)
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight run to finish.
// Stop is idempotent and safe to call before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// Runs returns how many times the task has been invoked.
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// run invokes the task with panic recovery. A panicking task is logged
// with a correlation id and the loop keeps going.
func (s *Scheduler) run(ctx context.Context) {
	s.mu.Lock()
	s.runs++
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sweep task panic",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	s.task(ctx)
}
