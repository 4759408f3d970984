package capability

import "fmt"

// DomainKind enumerates the value domains an attribute can have.
type DomainKind int

// Value domain kinds.
const (
	DomainBool DomainKind = iota
	DomainIntRange
	DomainEnum
	DomainString
)

// ValueDomain describes the legal values of an attribute.
type ValueDomain struct {
	Kind DomainKind

	// Min and Max bound DomainIntRange values (inclusive).
	Min, Max int

	// Enum lists the legal DomainEnum values.
	Enum []string
}

// Contains reports whether v is inside the domain. Numeric JSON values
// arrive as float64; both int and float64 are accepted for int ranges as
// long as the float carries no fractional part.
func (d ValueDomain) Contains(v any) bool {
	switch d.Kind {
	case DomainBool:
		_, ok := v.(bool)
		return ok
	case DomainIntRange:
		n, ok := asInt(v)
		return ok && n >= d.Min && n <= d.Max
	case DomainEnum:
		s, ok := v.(string)
		if !ok {
			return false
		}
		for _, e := range d.Enum {
			if s == e {
				return true
			}
		}
		return false
	case DomainString:
		_, ok := v.(string)
		return ok
	default:
		return false
	}
}

// asInt normalises JSON numbers to int. Floats with fractional parts are
// rejected rather than rounded.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// AttributeDescriptor describes one attribute within a capability.
type AttributeDescriptor struct {
	Name     string
	Domain   ValueDomain
	ReadOnly bool
}

// attributeTable is the static capability model. Order matters: it is the
// order attributes appear in snapshots and diagnostics.
var attributeTable = map[ID][]AttributeDescriptor{
	Switch: {
		{Name: AttrSwitch, Domain: ValueDomain{Kind: DomainEnum, Enum: []string{"on", "off"}}},
	},
	AudioVolume: {
		{Name: AttrVolume, Domain: ValueDomain{Kind: DomainIntRange, Min: 0, Max: 100}},
	},
	AudioMute: {
		{Name: AttrMute, Domain: ValueDomain{Kind: DomainBool}},
	},
	MediaPlayback: {
		{Name: AttrPlaybackStatus, Domain: ValueDomain{Kind: DomainEnum, Enum: []string{
			PlaybackPlaying, PlaybackPaused, PlaybackStopped, PlaybackIdle,
		}}},
	},
	MediaTrackControl: {
		{Name: AttrTrackCommands, Domain: ValueDomain{Kind: DomainString}, ReadOnly: true},
	},
	MediaInputSource: {
		{Name: AttrInputSource, Domain: ValueDomain{Kind: DomainString}},
		{Name: AttrSupportedSources, Domain: ValueDomain{Kind: DomainString}, ReadOnly: true},
	},
	PlaybackShuffle: {
		{Name: AttrShuffle, Domain: ValueDomain{Kind: DomainBool}},
	},
	PlaybackRepeat: {
		{Name: AttrRepeatMode, Domain: ValueDomain{Kind: DomainEnum, Enum: []string{
			RepeatOff, RepeatOne, RepeatAll,
		}}},
	},
	AudioTrackData: {
		{Name: AttrTrackData, Domain: ValueDomain{Kind: DomainString}, ReadOnly: true},
	},
}

// AttributesOf returns the ordered attribute descriptors of a capability.
// The returned slice is a copy; callers can safely modify it.
func AttributesOf(id ID) ([]AttributeDescriptor, error) {
	attrs, ok := attributeTable[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCapability, id)
	}
	out := make([]AttributeDescriptor, len(attrs))
	copy(out, attrs)
	return out, nil
}

// DescriptorOf returns the descriptor of one attribute within a capability.
func DescriptorOf(id ID, attribute string) (AttributeDescriptor, error) {
	attrs, ok := attributeTable[id]
	if !ok {
		return AttributeDescriptor{}, fmt.Errorf("%w: %s", ErrUnknownCapability, id)
	}
	for _, a := range attrs {
		if a.Name == attribute {
			return a, nil
		}
	}
	return AttributeDescriptor{}, fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, id, attribute)
}

// CommandFor returns the capability command that drives the attribute to
// the desired value. It fails with ErrUnsupportedMutation when the
// attribute is read-only or the value is outside its domain, and never
// touches the transport.
func CommandFor(id ID, attribute string, desired any) (Command, error) {
	desc, err := DescriptorOf(id, attribute)
	if err != nil {
		return Command{}, err
	}
	if desc.ReadOnly {
		return Command{}, fmt.Errorf("%w: %s.%s is read-only", ErrUnsupportedMutation, id, attribute)
	}
	if !desc.Domain.Contains(desired) {
		return Command{}, fmt.Errorf("%w: %v outside domain of %s.%s", ErrUnsupportedMutation, desired, id, attribute)
	}

	switch {
	case id == Switch && attribute == AttrSwitch:
		// "on"/"off" are command names, not arguments.
		return Command{Capability: Switch, Command: desired.(string)}, nil

	case id == AudioVolume && attribute == AttrVolume:
		n, _ := asInt(desired)
		return Command{Capability: AudioVolume, Command: "setVolume", Arguments: []any{n}}, nil

	case id == AudioMute && attribute == AttrMute:
		if desired.(bool) {
			return Command{Capability: AudioMute, Command: "mute"}, nil
		}
		return Command{Capability: AudioMute, Command: "unmute"}, nil

	case id == MediaPlayback && attribute == AttrPlaybackStatus:
		return playbackCommand(desired.(string))

	case id == MediaInputSource && attribute == AttrInputSource:
		return Command{Capability: MediaInputSource, Command: "setInputSource", Arguments: []any{desired}}, nil

	case id == PlaybackShuffle && attribute == AttrShuffle:
		// The wire value is "enabled"/"disabled", not a boolean.
		arg := "disabled"
		if desired.(bool) {
			arg = "enabled"
		}
		return Command{Capability: PlaybackShuffle, Command: "setPlaybackShuffle", Arguments: []any{arg}}, nil

	case id == PlaybackRepeat && attribute == AttrRepeatMode:
		return Command{Capability: PlaybackRepeat, Command: "setPlaybackRepeatMode", Arguments: []any{desired}}, nil

	default:
		return Command{}, fmt.Errorf("%w: no command maps %s.%s", ErrUnsupportedMutation, id, attribute)
	}
}

// playbackCommand maps a desired playback status to its command.
// "idle" is a reportable state but not a commandable one.
func playbackCommand(status string) (Command, error) {
	switch status {
	case PlaybackPlaying:
		return Command{Capability: MediaPlayback, Command: "play"}, nil
	case PlaybackPaused:
		return Command{Capability: MediaPlayback, Command: "pause"}, nil
	case PlaybackStopped:
		return Command{Capability: MediaPlayback, Command: "stop"}, nil
	default:
		return Command{}, fmt.Errorf("%w: playback status %q is not commandable", ErrUnsupportedMutation, status)
	}
}

// NewTrackCommand builds a track skip command. Track control is a pure
// action with no target attribute, so it bypasses CommandFor.
func NewTrackCommand(next bool) Command {
	cmd := "previousTrack"
	if next {
		cmd = "nextTrack"
	}
	return Command{Capability: MediaTrackControl, Command: cmd}
}
