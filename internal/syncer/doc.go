// Package syncer keeps one device's local state converged with the
// cloud. A Controller serializes outbound commands through a bounded
// queue with retry and backoff, applies optimistic field updates that
// revert when commands fail or their confirmation window lapses, polls
// device status on an interval, consumes push reports when the
// transport offers them, and reconciles every report batch through the
// player state merge rules.
//
// Transport acknowledgement and device confirmation are distinct: a
// command is acknowledged when the cloud accepts it, and confirmed only
// when a subsequent attribute report carries the desired value.
package syncer
