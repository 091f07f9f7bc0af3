package daystatus

import (
	"log/slog"
	"time"

	"github.com/jpalmerr/daystatus/internal/substrate"
)

// Substrate is the key-value storage a [Store] persists its document to.
// Implementations only need whole-value string Get, Set and Remove.
type Substrate = substrate.Substrate

// Notifier is implemented by substrates that report writes made by other
// instances. A [Store] whose substrate implements Notifier keeps itself in
// step with those instances.
type Notifier = substrate.Notifier

// Change is one write reported by a [Notifier].
type Change = substrate.Change

// Built-in substrates.
type (
	// MemoryStorage is process-local storage shared between tabs created
	// with its Tab method.
	MemoryStorage = substrate.Memory

	// MemoryTab is one instance's view of a MemoryStorage.
	MemoryTab = substrate.MemoryTab

	// FileStorage keeps one JSON file per key in a directory and polls it
	// for writes by other processes.
	FileStorage = substrate.File

	// BoltStorage keeps keys in a bbolt database file.
	BoltStorage = substrate.Bolt

	// RedisStorage keeps keys in Redis and announces writes over pub/sub.
	RedisStorage = substrate.Redis

	// RedisOptions configures a RedisStorage.
	RedisOptions = substrate.RedisOptions
)

// DefaultCapacity is the capacity of a MemoryStorage created with capacity 0.
const DefaultCapacity = substrate.DefaultCapacity

// NewMemoryStorage creates in-memory storage limited to capacity bytes.
// A capacity of 0 selects [DefaultCapacity].
func NewMemoryStorage(capacity int) *MemoryStorage {
	return substrate.NewMemory(capacity)
}

// NewFileStorage creates file storage in dir, polling for external writes
// every pollInterval (0 selects a default).
func NewFileStorage(dir string, pollInterval time.Duration) (*FileStorage, error) {
	return substrate.NewFile(dir, pollInterval)
}

// NewBoltStorage opens or creates a bbolt database at path.
func NewBoltStorage(path string) (*BoltStorage, error) {
	return substrate.NewBolt(path)
}

// NewRedisStorage connects to Redis and verifies the connection.
func NewRedisStorage(opts RedisOptions, logger *slog.Logger) (*RedisStorage, error) {
	return substrate.NewRedis(opts, logger)
}
