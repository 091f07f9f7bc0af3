// Package sweeper runs the status store's periodic expiry sweep.
//
// The main component is [Scheduler], a ticker loop with idempotent
// Start/Stop and panic recovery. The sweep itself lives in the store; this
// package only decides when it runs.
package sweeper
