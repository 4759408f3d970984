// Package history persists player state snapshots to SQLite.
//
// Every reconciled state change is recorded as a full JSON snapshot
// with its derived state and origin, newest-first queryable per device.
// The table is created on first use; there is no separate migration
// step.
package history
