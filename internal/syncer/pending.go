package syncer

import (
	"time"

	"github.com/stbridge/media-bridge-core/internal/capability"
	"github.com/stbridge/media-bridge-core/internal/player"
)

// PendingState tracks the lifecycle of one outbound command.
type PendingState string

// Pending command states. A command moves sent → acknowledged on
// transport success, and terminates as failed (retries exhausted),
// expired (no confirming report in the window or superseded by a newer
// intent), or is resolved silently when a confirming report arrives.
const (
	PendingSent         PendingState = "sent"
	PendingAcknowledged PendingState = "acknowledged"
	PendingFailed       PendingState = "failed"
	PendingExpired      PendingState = "expired"
)

// PendingCommand is the tracked lifecycle of one outbound mutation
// attempt. It is created on dispatch and resolved exactly once; a fresh
// retry after expiry is a new PendingCommand, never a resurrection.
type PendingCommand struct {
	// ID is the unique command identifier (UUID).
	ID string `json:"id"`

	// Command is the capability command on the wire.
	Command capability.Command `json:"command"`

	// Field is the state field the command targets; empty for pure
	// actions like track skip.
	Field player.FieldName `json:"field,omitempty"`

	// Desired is the value the field should converge to.
	Desired any `json:"desired,omitempty"`

	// SentAt is when the command was dispatched.
	SentAt time.Time `json:"sent_at"`

	// Retries counts transport attempts actually made.
	Retries int `json:"retries"`

	// State is the current lifecycle state.
	State PendingState `json:"state"`
}

// confirms reports whether a merged field value satisfies the command.
func (p *PendingCommand) confirms(f player.Field) bool {
	if p.Field == "" || f.Freshness != player.Confirmed {
		return false
	}
	return valuesMatch(p.Desired, f.Value)
}

// valuesMatch compares a desired value against a reconciled field value.
// Volume arrives as int after coercion; everything else is directly
// comparable.
func valuesMatch(desired, got any) bool {
	if d, ok := desired.(int); ok {
		switch g := got.(type) {
		case int:
			return d == g
		case float64:
			return float64(d) == g
		}
		return false
	}
	return desired == got
}
