package daystatus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jpalmerr/daystatus/internal/events"
	"github.com/jpalmerr/daystatus/internal/persist"
	"github.com/jpalmerr/daystatus/internal/substrate"
	"github.com/jpalmerr/daystatus/internal/sweeper"
	"github.com/jpalmerr/daystatus/internal/tabsync"
)

// Store is the per-date status store.
//
// Store keeps every record in memory and writes the whole keyspace to its
// [Substrate] as one document after each change. It is created with [New],
// loaded with [Store.Init] and released with [Store.Close]:
//
//	store, err := daystatus.New(daystatus.WithSubstrate(sub))
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	if err := store.Init(ctx); err != nil {
//	    return err
//	}
//
//	res := store.Save(ctx, daystatus.RecordInput{
//	    GlobalStatus:  daystatus.StatusCancelled,
//	    GlobalMessage: "Pitch flooded",
//	}, "")
//
// All methods are safe for concurrent use. Each operation holds the store's
// lock from normalization through persistence, so operations never
// interleave. Between processes sharing a substrate the last whole-document
// write wins.
type Store struct {
	courses       []Course
	adapter       *persist.Adapter
	notifier      substrate.Notifier
	retentionDays int
	location      *time.Location
	now           func() time.Time
	logger        *slog.Logger
	callbacks     []func(Event)
	broker        *events.Broker[Event]
	coordinator   *tabsync.Coordinator
	sweeper       *sweeper.Scheduler

	// lifetime of the background work started by Init
	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.RWMutex
	records     map[string]Record
	initialized bool

	closeOnce sync.Once
}

// SaveResult is the outcome of [Store.Save].
//
// On success Record holds the stored record. On failure Errors lists
// human-readable reasons and Err is a [*ValidationError], a
// [*PersistenceError] or [ErrNotInitialized].
type SaveResult struct {
	Success bool
	Record  Record
	Errors  []string
	Err     error
}

// DeleteResult is the outcome of [Store.Delete]. Record is the removed
// record on success.
type DeleteResult struct {
	Success bool
	Record  *Record
	Err     error
}

// New creates a [Store] with the given options.
//
// Defaults:
//   - Substrate: an unshared in-memory tab
//   - Courses: [DefaultCourses]
//   - Retention: 30 days, swept every 30 minutes
//   - Keys: [DefaultPrimaryKey] with [DefaultLegacyKey] as fallback
//   - Location: time.Local
//
// Returns an error if any option is invalid or the course list is empty or
// has duplicate ids.
func New(opts ...Option) (*Store, error) {
	cfg := &storeConfig{
		courses:       DefaultCourses(),
		retentionDays: defaultRetentionDays,
		sweepInterval: defaultSweepInterval,
		now:           time.Now,
		location:      time.Local,
		primaryKey:    DefaultPrimaryKey,
		legacyKey:     DefaultLegacyKey,
		sync:          true,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if err := validateCourses(cfg.courses); err != nil {
		return nil, err
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	sub := cfg.substrate
	if sub == nil {
		sub = substrate.NewMemory(0).Tab()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		courses: cfg.courses,
		adapter: &persist.Adapter{
			Substrate:  sub,
			PrimaryKey: cfg.primaryKey,
			LegacyKey:  cfg.legacyKey,
			Version:    SchemaVersion,
			Now:        cfg.now,
		},
		retentionDays: cfg.retentionDays,
		location:      cfg.location,
		now:           cfg.now,
		logger:        logger,
		callbacks:     cfg.eventCallbacks,
		broker:        events.NewBroker[Event](),
		ctx:           ctx,
		cancel:        cancel,
		records:       make(map[string]Record),
	}

	if n, ok := sub.(substrate.Notifier); ok && cfg.sync {
		s.notifier = n
	}
	s.coordinator = tabsync.New(s.notifier, cfg.primaryKey, s.applyExternal, logger)

	if cfg.sweepInterval > 0 {
		s.sweeper = sweeper.New(cfg.sweepInterval, s.sweepTask, logger)
	}

	return s, nil
}

// Init loads the stored document, migrates it and starts background work:
// following other instances (when the substrate can notify) and the
// periodic expiry sweep.
//
// Init is idempotent. A failed load returns a [*PersistenceError] and leaves
// the store uninitialized so Init can be retried.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return nil
	}

	// The watch starts before the load. A change that lands in between
	// blocks on s.mu in applyExternal and is adopted once the load is in.
	if err := s.coordinator.Start(s.ctx); err != nil {
		// the store stays usable; it just won't see other instances
		s.logger.Warn("cross-instance sync unavailable", "error", err)
	}

	raw, err := s.adapter.Load(ctx)
	if err != nil {
		s.mu.Unlock()
		s.logger.Error("status store load failed", "error", err)
		return err
	}

	records, report := Migrate(raw, s.courses)
	s.records = records
	s.initialized = true
	s.mu.Unlock()

	for _, d := range report.Dropped {
		s.logger.Debug("stored record dropped", "date", d.Key, "reason", d.Reason)
	}
	s.logger.Info("status store initialized",
		"records", report.Kept,
		"upgraded", report.Upgraded,
		"dropped", len(report.Dropped),
		"sync", s.notifier != nil,
	)

	if s.sweeper != nil {
		s.sweeper.Start(s.ctx)
	}

	return nil
}

// Close stops background work and event delivery. Subscriber channels are
// closed. The substrate is not closed; it belongs to the caller.
//
// Close is idempotent and always returns nil.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.coordinator.Stop()
		if s.sweeper != nil {
			s.sweeper.Stop()
		}
		s.broker.Close()
	})
	return nil
}

// Courses returns a copy of the configured courses.
func (s *Store) Courses() []Course {
	cp := make([]Course, len(s.courses))
	copy(cp, s.courses)
	return cp
}

// RetentionDays returns how many past days the sweep keeps.
func (s *Store) RetentionDays() int {
	return s.retentionDays
}

// Today returns the current date in the store's location.
func (s *Store) Today() string {
	return s.now().In(s.location).Format(DateLayout)
}

// GetByDate returns the record for date, or the default record when none is
// stored. It never fails.
func (s *Store) GetByDate(date string) Record {
	s.mu.RLock()
	rec, ok := s.records[date]
	s.mu.RUnlock()

	if ok {
		return rec.clone()
	}
	return DefaultRecord(date, s.courses)
}

// Exists reports whether a record is stored for date.
func (s *Store) Exists(date string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[date]
	return ok
}

// Save normalizes, validates and stores in as the record for date. An empty
// date means today.
//
// Nothing is written when validation fails. When persisting fails the
// in-memory change is rolled back and Err holds the [*PersistenceError].
func (s *Store) Save(ctx context.Context, in RecordInput, date string) SaveResult {
	if date == "" {
		date = s.Today()
	}

	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return failedSave(ErrNotInitialized)
	}

	rec := Normalize(in, date, s.courses, s.now().UTC())
	if res := Validate(rec, s.courses); !res.Valid {
		s.mu.Unlock()
		return SaveResult{
			Record: rec,
			Errors: res.Errors,
			Err:    &ValidationError{Errors: res.Errors},
		}
	}

	prev, existed := s.records[date]
	s.records[date] = rec
	if err := s.persistLocked(ctx); err != nil {
		if existed {
			s.records[date] = prev
		} else {
			delete(s.records, date)
		}
		s.mu.Unlock()
		s.logger.Error("status save failed", "date", date, "error", err)
		return failedSave(err)
	}

	ev := s.newEvent(EventUpdated, date, &rec, SourceLocal)
	s.broker.Publish(ev)
	s.mu.Unlock()

	s.logger.Info("status saved",
		"date", date,
		"status", rec.GlobalStatus,
	)
	s.runCallbacks(ev)

	return SaveResult{Success: true, Record: rec.clone()}
}

func failedSave(err error) SaveResult {
	return SaveResult{Errors: []string{err.Error()}, Err: err}
}

// Delete removes the record for date.
//
// A date without a stored record yields Success false and [ErrNotFound]
// without touching the substrate.
func (s *Store) Delete(ctx context.Context, date string) DeleteResult {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return DeleteResult{Err: ErrNotInitialized}
	}

	rec, ok := s.records[date]
	if !ok {
		s.mu.Unlock()
		return DeleteResult{Err: ErrNotFound}
	}

	delete(s.records, date)
	if err := s.persistLocked(ctx); err != nil {
		s.records[date] = rec
		s.mu.Unlock()
		s.logger.Error("status delete failed", "date", date, "error", err)
		return DeleteResult{Err: err}
	}

	ev := s.newEvent(EventDeleted, date, &rec, SourceLocal)
	s.broker.Publish(ev)
	s.mu.Unlock()

	s.logger.Info("status deleted", "date", date)
	s.runCallbacks(ev)

	removed := rec.clone()
	return DeleteResult{Success: true, Record: &removed}
}

// ListRecent returns the records of the n days ending today, today first.
// Days without a stored record are filled with defaults.
func (s *Store) ListRecent(n int) []Record {
	if n <= 0 {
		return []Record{}
	}

	today := s.now().In(s.location)
	out := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		date := today.AddDate(0, 0, -i).Format(DateLayout)
		out = append(out, s.GetByDate(date))
	}
	return out
}

// All returns every stored record in ascending date order.
func (s *Store) All() []Record {
	s.mu.RLock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// ClearAll removes every record and deletes the document, including the
// legacy copy, from the substrate.
//
// If the primary document was removed but the legacy copy could not be,
// the in-memory records are cleared anyway and the error is returned.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return ErrNotInitialized
	}

	err := s.adapter.Clear(ctx)
	if err != nil && !s.primaryRemoved(err) {
		s.mu.Unlock()
		s.logger.Error("status clear failed", "error", err)
		return err
	}
	count := len(s.records)
	s.records = make(map[string]Record)

	ev := s.newEvent(EventCleared, "", nil, SourceLocal)
	s.broker.Publish(ev)
	s.mu.Unlock()

	if err != nil {
		// the primary document is gone, only the legacy copy survived
		s.logger.Error("status clear incomplete", "records", count, "error", err)
	} else {
		s.logger.Info("status store cleared", "records", count)
	}
	s.runCallbacks(ev)
	return err
}

// primaryRemoved reports whether a failed clear got past the primary key.
func (s *Store) primaryRemoved(err error) bool {
	var perr *PersistenceError
	return errors.As(err, &perr) && perr.Key != s.adapter.PrimaryKey
}

// Sweep removes records dated more than the retention period before today
// and returns how many were removed. The substrate is only written when
// something was removed.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().In(s.location).AddDate(0, 0, -s.retentionDays).Format(DateLayout)

	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return 0, ErrNotInitialized
	}

	expired := make(map[string]Record)
	for date, rec := range s.records {
		// YYYY-MM-DD keys order lexically
		if date < cutoff {
			expired[date] = rec
			delete(s.records, date)
		}
	}
	if len(expired) == 0 {
		s.mu.Unlock()
		return 0, nil
	}

	if err := s.persistLocked(ctx); err != nil {
		for date, rec := range expired {
			s.records[date] = rec
		}
		s.mu.Unlock()
		return 0, fmt.Errorf("sweep: %w", err)
	}

	evs := make([]Event, 0, len(expired))
	for date, rec := range expired {
		rec := rec
		ev := s.newEvent(EventDeleted, date, &rec, SourceSweep)
		s.broker.Publish(ev)
		evs = append(evs, ev)
	}
	s.mu.Unlock()

	s.logger.Info("expired records swept", "removed", len(expired), "cutoff", cutoff)
	for _, ev := range evs {
		s.runCallbacks(ev)
	}
	return len(expired), nil
}

// sweepTask adapts Sweep to the background scheduler.
func (s *Store) sweepTask(ctx context.Context) {
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Warn("expiry sweep failed", "error", err)
	}
}

// Subscribe returns a channel receiving every subsequent [Event]. Slow
// subscribers miss events rather than block the store. Release the channel
// with [Store.Unsubscribe].
func (s *Store) Subscribe() <-chan Event {
	return s.broker.Subscribe()
}

// Unsubscribe stops delivery to ch and closes it.
func (s *Store) Unsubscribe(ch <-chan Event) {
	s.broker.Unsubscribe(ch)
}

// applyExternal adopts a document written by another instance. It replaces
// the whole keyspace; the substrate is never written back.
func (s *Store) applyExternal(value string, removed bool) (int, error) {
	var raw map[string]json.RawMessage
	if !removed {
		decoded, err := persist.Decode(value)
		if err != nil {
			return 0, err
		}
		raw = decoded
	}

	records, report := Migrate(raw, s.courses)
	for _, d := range report.Dropped {
		s.logger.Debug("external record dropped", "date", d.Key, "reason", d.Reason)
	}

	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return 0, ErrNotInitialized
	}
	s.records = records
	ev := s.newEvent(EventSynced, "", nil, SourceExternal)
	ev.Count = len(records)
	s.broker.Publish(ev)
	s.mu.Unlock()

	s.logger.Info("status synced from another instance", "records", len(records))
	s.runCallbacks(ev)
	return len(records), nil
}

// persistLocked writes the whole keyspace. s.mu must be held.
func (s *Store) persistLocked(ctx context.Context) error {
	entries := make(map[string]json.RawMessage, len(s.records))
	for date, rec := range s.records {
		data, err := json.Marshal(rec)
		if err != nil {
			return &PersistenceError{Op: "save", Key: s.adapter.PrimaryKey, Err: err}
		}
		entries[date] = data
	}
	return s.adapter.Save(ctx, entries)
}

func (s *Store) newEvent(kind EventKind, date string, rec *Record, source string) Event {
	ev := Event{
		Kind:   kind,
		Date:   date,
		Source: source,
		At:     s.now(),
	}
	if rec != nil {
		cp := rec.clone()
		ev.Record = &cp
	}
	return ev
}

func (s *Store) runCallbacks(ev Event) {
	for _, cb := range s.callbacks {
		invokeCallbackSafe(cb, ev, s.logger)
	}
}
