package daystatus

import (
	"errors"

	"github.com/jpalmerr/daystatus/internal/persist"
	"github.com/jpalmerr/daystatus/internal/substrate"
	"github.com/jpalmerr/daystatus/internal/tabsync"
)

var (
	// ErrNotInitialized is returned by mutating operations called before
	// [Store.Init] succeeded.
	ErrNotInitialized = errors.New("status store not initialized")

	// ErrNotFound is returned by [Store.Delete] for a date without a stored
	// record.
	ErrNotFound = errors.New("no record for date")

	// ErrQuotaExceeded is wrapped by a [PersistenceError] when the substrate
	// is full.
	ErrQuotaExceeded = substrate.ErrQuotaExceeded
)

// PersistenceError reports a failed substrate read or write. Its Op field is
// "load", "save" or "clear"; use errors.Is to look for [ErrQuotaExceeded].
type PersistenceError = persist.Error

// SyncParseError reports an external document that could not be adopted.
// It is logged, never returned.
type SyncParseError = tabsync.SyncParseError
