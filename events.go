package daystatus

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// EventKind identifies what changed in a [Store].
type EventKind string

const (
	// EventUpdated is published after a record was saved.
	EventUpdated EventKind = "updated"

	// EventDeleted is published after a record was removed, either by
	// [Store.Delete] or by the expiry sweep.
	EventDeleted EventKind = "deleted"

	// EventSynced is published after the store adopted a document written
	// by another instance.
	EventSynced EventKind = "synced"

	// EventCleared is published after [Store.ClearAll].
	EventCleared EventKind = "cleared"
)

const (
	// SourceLocal marks changes made through this store.
	SourceLocal = "local"

	// SourceExternal marks changes adopted from another instance.
	SourceExternal = "external"

	// SourceSweep marks records removed by the expiry sweep.
	SourceSweep = "sweep"
)

// Event describes one change to a [Store].
//
// Date and Record are set for updated and deleted events. Count is set for
// synced events.
type Event struct {
	Kind   EventKind `json:"kind"`
	Date   string    `json:"date,omitempty"`
	Record *Record   `json:"record,omitempty"`
	Source string    `json:"source,omitempty"`
	Count  int       `json:"count"`
	At     time.Time `json:"at"`
}

// invokeCallbackSafe calls an event callback with panic recovery.
// Panics are logged with a correlation id but do not propagate.
func invokeCallbackSafe(cb func(Event), ev Event, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event callback panicked",
				"panic", r,
				"kind", ev.Kind,
				"date", ev.Date,
				"correlation_id", uuid.NewString(),
			)
		}
	}()
	cb(ev)
}
