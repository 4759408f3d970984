package history

import (
	"context"
	"time"

	"github.com/stbridge/media-bridge-core/internal/player"
)

// Snapshot source values.
const (
	SourcePoll    = "poll"
	SourcePush    = "push"
	SourceCommand = "command"
)

// Entry is one recorded player state snapshot.
//
// Each entry stores the full field map at the moment the state changed,
// plus the derived host-facing state, giving a local audit trail even
// when the time-series database is unavailable.
type Entry struct {
	// ID is the auto-incremented primary key for the history row.
	ID int64 `json:"id"`

	// DeviceID is the unique identifier of the device.
	DeviceID string `json:"device_id"`

	// State is the full snapshot at the time of the change.
	State player.State `json:"state"`

	// Derived is the collapsed state string (off, playing, ...) at the
	// time of the change, stored denormalised for cheap querying.
	Derived string `json:"derived"`

	// Source identifies what produced the change (poll, push, command).
	Source string `json:"source"`

	// CreatedAt is the timestamp of the snapshot (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// Repository stores and retrieves player state snapshots.
// Implementations must be safe for concurrent use and use UTC
// timestamps.
type Repository interface {
	// Record persists one state snapshot.
	Record(ctx context.Context, state player.State, source string) error

	// History returns recent snapshots for a device, newest first.
	// Implementations may clamp limit.
	History(ctx context.Context, deviceID string, limit int) ([]Entry, error)

	// Prune deletes snapshots older than the given duration and
	// returns the number of rows removed.
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}
