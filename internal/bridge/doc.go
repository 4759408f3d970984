// Package bridge wires devices to their sync controllers and fans
// reconciled state out to the rest of the system.
//
// The Manager is the host-facing surface: attach a device to discover
// its profile and start syncing, dispatch intents at it, read its
// snapshot, detach to release polling. Every reconciled state change is
// published retained over MQTT, appended to the SQLite history and
// delivered to registered listeners; attribute reports and command
// outcomes flow to telemetry. All fan-out is best-effort and never
// feeds back into reconciliation.
package bridge
