package substrate

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// DefaultCapacity is the byte budget of a [Memory] substrate created with a
// non-positive capacity. It matches the usual per-origin browser quota.
const DefaultCapacity = 5 << 20

// Memory is a capacity-limited, in-process substrate shared by any number of
// tabs.
//
// Memory itself is not used directly; each participant obtains its own view
// with [Memory.Tab]. A write through one tab is delivered to every other
// tab's watchers, mirroring how browser storage events fire only in the
// tabs that did not make the write.
//
// Changes are broadcast while the write lock is held, so every watcher sees
// writes in the order they were applied.
//
// Size accounting counts len(key)+len(value) per entry. A Set that would
// exceed the capacity fails with [ErrQuotaExceeded].
type Memory struct {
	mu       sync.RWMutex
	values   map[string]string
	size     int
	capacity int

	tabMu sync.RWMutex
	tabs  map[*MemoryTab]struct{}
}

// NewMemory creates an empty [Memory] substrate with the given byte capacity.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Memory{
		values:   make(map[string]string),
		capacity: capacity,
		tabs:     make(map[*MemoryTab]struct{}),
	}
}

// Tab returns a new view onto the shared storage with its own identity.
func (m *Memory) Tab() *MemoryTab {
	t := &MemoryTab{
		mem:      m,
		id:       uuid.NewString(),
		watchers: make(map[chan Change]struct{}),
	}

	m.tabMu.Lock()
	m.tabs[t] = struct{}{}
	m.tabMu.Unlock()

	return t
}

// Size returns the number of bytes currently in use.
func (m *Memory) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *Memory) get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *Memory) set(origin *MemoryTab, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.size + len(key) + len(value)
	if old, ok := m.values[key]; ok {
		next -= len(key) + len(old)
	}
	if next > m.capacity {
		return ErrQuotaExceeded
	}
	m.values[key] = value
	m.size = next

	m.broadcast(origin, Change{Key: key, Value: value, Origin: origin.id})
	return nil
}

func (m *Memory) remove(origin *MemoryTab, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.values[key]
	if !ok {
		return
	}
	delete(m.values, key)
	m.size -= len(key) + len(old)

	m.broadcast(origin, Change{Key: key, Removed: true, Origin: origin.id})
}

// broadcast delivers the change to every tab except the one that made it.
// The caller holds m.mu.
func (m *Memory) broadcast(origin *MemoryTab, c Change) {
	m.tabMu.RLock()
	defer m.tabMu.RUnlock()

	for t := range m.tabs {
		if t == origin {
			continue
		}
		t.notify(c)
	}
}

// MemoryTab is one participant's view of a [Memory] substrate. It implements
// [Substrate] and [Notifier].
type MemoryTab struct {
	mem *Memory
	id  string

	mu       sync.RWMutex
	watchers map[chan Change]struct{}
}

// ID returns the tab's unique origin identifier.
func (t *MemoryTab) ID() string {
	return t.id
}

// Get implements [Substrate].
func (t *MemoryTab) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := t.mem.get(key)
	return v, ok, nil
}

// Set implements [Substrate].
func (t *MemoryTab) Set(_ context.Context, key, value string) error {
	return t.mem.set(t, key, value)
}

// Remove implements [Substrate].
func (t *MemoryTab) Remove(_ context.Context, key string) error {
	t.mem.remove(t, key)
	return nil
}

// Watch implements [Notifier]. The returned channel is closed once ctx is
// cancelled.
func (t *MemoryTab) Watch(ctx context.Context) (<-chan Change, error) {
	ch := make(chan Change, watchBuffer)

	t.mu.Lock()
	t.watchers[ch] = struct{}{}
	t.mu.Unlock()

	go func() {
		<-ctx.Done()
		t.mu.Lock()
		delete(t.watchers, ch)
		close(ch)
		t.mu.Unlock()
	}()

	return ch, nil
}

// Close detaches the tab from the shared storage. Its watchers stop
// receiving changes but stay open until their contexts end.
func (t *MemoryTab) Close() error {
	t.mem.tabMu.Lock()
	delete(t.mem.tabs, t)
	t.mem.tabMu.Unlock()
	return nil
}

// notify sends c to all watchers without blocking.
func (t *MemoryTab) notify(c Change) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for ch := range t.watchers {
		select {
		case ch <- c:
		default:
			// watcher is slow, drop the change
		}
	}
}
