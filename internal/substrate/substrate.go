package substrate

import (
	"context"
	"errors"
)

// ErrQuotaExceeded is returned by [Substrate.Set] when the write would push
// the substrate past its capacity. The previous value is left untouched.
var ErrQuotaExceeded = errors.New("substrate quota exceeded")

// Substrate is a whole-value, string-only key-value store.
//
// Implementations must make each Set atomic with respect to readers: a
// concurrent Get observes either the old or the new value, never a mix.
// No ordering is guaranteed between writers in different processes.
type Substrate interface {
	// Get returns the value stored under key. ok is false when the key
	// does not exist; err is reserved for read failures.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set replaces the value stored under key.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// Notifier is implemented by substrates that can report writes made by
// other instances sharing the same underlying storage.
type Notifier interface {
	// Watch streams external changes until ctx is cancelled, at which point
	// the channel is closed. Changes made through the watching instance
	// itself are never delivered.
	Watch(ctx context.Context) (<-chan Change, error)
}

// Change describes a write observed on a shared substrate.
type Change struct {
	// Key is the substrate key that changed.
	Key string `json:"key"`

	// Value is the new value. Empty when Removed is true.
	Value string `json:"value,omitempty"`

	// Removed reports that the key was deleted.
	Removed bool `json:"removed,omitempty"`

	// Origin identifies the instance that made the write, when known.
	Origin string `json:"origin,omitempty"`
}

// watchBuffer is the channel buffer handed to watchers. Sends are
// non-blocking; a watcher that falls this far behind misses changes.
const watchBuffer = 100
