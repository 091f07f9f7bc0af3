// Package substrate provides the persistent key-value backends the status
// store writes its document to.
//
// All backends share the [Substrate] interface: whole-value, string-only
// Get/Set/Remove. Backends that are shared between processes also implement
// [Notifier], which streams writes made by *other* instances so a store can
// re-hydrate its in-memory copy.
//
// The available backends are:
//
//   - [Memory]: capacity-limited in-process storage handing out per-tab views
//   - [File]: one file per key in a directory, polled for external writes
//   - [Bolt]: a bbolt database file, durable but single-process
//   - [Redis]: Redis keys plus a pub/sub channel for change notifications
//
// Users of the daystatus library select a backend through the config
// package or pass one directly with daystatus.WithSubstrate.
package substrate
