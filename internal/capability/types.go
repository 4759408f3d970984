package capability

import (
	"context"
	"time"
)

// ID identifies a capability by its SmartThings identifier.
type ID string

// Capabilities the bridge understands. A device profile holds a subset
// of these; anything outside the closed set is dropped at the edge.
const (
	Switch            ID = "switch"
	AudioVolume       ID = "audioVolume"
	AudioMute         ID = "audioMute"
	MediaPlayback     ID = "mediaPlayback"
	MediaTrackControl ID = "mediaTrackControl"
	MediaInputSource  ID = "mediaInputSource"
	PlaybackShuffle   ID = "mediaPlaybackShuffle"
	PlaybackRepeat    ID = "mediaPlaybackRepeat"
	AudioTrackData    ID = "audioTrackData"
)

// All returns all capabilities the bridge understands.
func All() []ID {
	return []ID{
		Switch, AudioVolume, AudioMute, MediaPlayback, MediaTrackControl,
		MediaInputSource, PlaybackShuffle, PlaybackRepeat, AudioTrackData,
	}
}

// IsKnown reports whether id is part of the closed capability set.
func IsKnown(id ID) bool {
	for _, known := range All() {
		if id == known {
			return true
		}
	}
	return false
}

// Attribute names within capabilities.
const (
	AttrSwitch           = "switch"
	AttrVolume           = "volume"
	AttrMute             = "mute"
	AttrPlaybackStatus   = "playbackStatus"
	AttrInputSource      = "inputSource"
	AttrSupportedSources = "supportedInputSources"
	AttrShuffle          = "playbackShuffle"
	AttrRepeatMode       = "playbackRepeatMode"
	AttrTrackData        = "audioTrackData"
	AttrTrackCommands    = "supportedTrackControlCommands"
)

// Playback status values reported by mediaPlayback.
const (
	PlaybackPlaying = "playing"
	PlaybackPaused  = "paused"
	PlaybackStopped = "stopped"
	PlaybackIdle    = "idle"
)

// Repeat mode values reported by mediaPlaybackRepeat.
const (
	RepeatOff = "off"
	RepeatOne = "one"
	RepeatAll = "all"
)

// Source identifies how an attribute report reached the bridge.
type Source string

// Report sources.
const (
	SourcePoll Source = "poll"
	SourcePush Source = "push"
)

// AttributeReport is one observed attribute value. Reports are discrete
// facts; they are never mutated after creation.
type AttributeReport struct {
	Capability ID        `json:"capability"`
	Attribute  string    `json:"attribute"`
	Value      any       `json:"value"`
	Timestamp  time.Time `json:"timestamp"`
	Source     Source    `json:"source"`
}

// Command is a single capability command invocation in SmartThings wire
// shape: capability, command name, and positional arguments.
type Command struct {
	Capability ID     `json:"capability"`
	Command    string `json:"command"`
	Arguments  []any  `json:"arguments,omitempty"`
}

// Client is the consumed cloud transport. Implementations must be safe
// for concurrent use; the sync controller serialises calls per device
// but multiple devices share one client.
type Client interface {
	// ListCapabilities returns the capability identifiers the device
	// instance actually supports.
	ListCapabilities(ctx context.Context, deviceID string) ([]ID, error)

	// GetStatus returns the current value of every attribute the device
	// reports, as a batch of poll-sourced attribute reports.
	GetStatus(ctx context.Context, deviceID string) ([]AttributeReport, error)

	// SendCommand executes one capability command on the device.
	// A nil error is transport acknowledgment only; it does not mean the
	// device has reached the commanded state.
	SendCommand(ctx context.Context, deviceID string, cmd Command) error

	// Subscribe opens a push channel of attribute reports for the device.
	// The channel is closed when ctx is cancelled. Devices without push
	// support return ErrPushUnsupported; polling is then the sole source.
	Subscribe(ctx context.Context, deviceID string) (<-chan AttributeReport, error)
}
