package player

import (
	"time"

	"github.com/stbridge/media-bridge-core/internal/capability"
	"github.com/stbridge/media-bridge-core/internal/profile"
)

// FieldName identifies one field of the player state snapshot.
type FieldName string

// Player state fields.
const (
	FieldPower      FieldName = "power"
	FieldPlayback   FieldName = "playback"
	FieldVolume     FieldName = "volume"
	FieldMuted      FieldName = "muted"
	FieldSource     FieldName = "source"
	FieldSourceList FieldName = "source_list"
	FieldShuffle    FieldName = "shuffle"
	FieldRepeat     FieldName = "repeat"
	FieldTrack      FieldName = "track"
)

// AllFields returns every field in snapshot order.
func AllFields() []FieldName {
	return []FieldName{
		FieldPower, FieldPlayback, FieldVolume, FieldMuted, FieldSource,
		FieldSourceList, FieldShuffle, FieldRepeat, FieldTrack,
	}
}

// fieldBinding ties a field to the capability attribute that feeds it.
type fieldBinding struct {
	capability capability.ID
	attribute  string
}

var fieldBindings = map[FieldName]fieldBinding{
	FieldPower:      {capability.Switch, capability.AttrSwitch},
	FieldPlayback:   {capability.MediaPlayback, capability.AttrPlaybackStatus},
	FieldVolume:     {capability.AudioVolume, capability.AttrVolume},
	FieldMuted:      {capability.AudioMute, capability.AttrMute},
	FieldSource:     {capability.MediaInputSource, capability.AttrInputSource},
	FieldSourceList: {capability.MediaInputSource, capability.AttrSupportedSources},
	FieldShuffle:    {capability.PlaybackShuffle, capability.AttrShuffle},
	FieldRepeat:     {capability.PlaybackRepeat, capability.AttrRepeatMode},
	FieldTrack:      {capability.AudioTrackData, capability.AttrTrackData},
}

// FieldFor maps an attribute report target to its state field.
func FieldFor(cap capability.ID, attribute string) (FieldName, bool) {
	for name, b := range fieldBindings {
		if b.capability == cap && b.attribute == attribute {
			return name, true
		}
	}
	return "", false
}

// BindingOf returns the capability and attribute feeding a field.
func BindingOf(name FieldName) (capability.ID, string, bool) {
	b, ok := fieldBindings[name]
	return b.capability, b.attribute, ok
}

// Freshness tags how much trust a field value deserves.
type Freshness string

// Field freshness states. Unsupported is permanent for a device whose
// profile lacks the backing capability; it never becomes Unknown.
const (
	Unsupported Freshness = "unsupported"
	Unknown     Freshness = "unknown"
	Optimistic  Freshness = "optimistic"
	Confirmed   Freshness = "confirmed"
)

// Field is one tagged-union slot of the player state.
//
// Value is only meaningful for Optimistic and Confirmed. CommandID links
// an optimistic value to the pending command that guessed it.
type Field struct {
	Freshness Freshness `json:"freshness"`
	Value     any       `json:"value,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
	CommandID string    `json:"command_id,omitempty"`
}

// UnsupportedField returns the permanent field for absent capabilities.
func UnsupportedField() Field {
	return Field{Freshness: Unsupported}
}

// UnknownField returns a supported-but-unobserved field.
func UnknownField() Field {
	return Field{Freshness: Unknown}
}

// OptimisticField returns a locally assumed value pending confirmation.
func OptimisticField(value any, commandID string, at time.Time) Field {
	return Field{Freshness: Optimistic, Value: value, CommandID: commandID, UpdatedAt: at}
}

// ConfirmedField returns a remotely observed value.
func ConfirmedField(value any, at time.Time) Field {
	return Field{Freshness: Confirmed, Value: value, UpdatedAt: at}
}

// HasValue reports whether the field carries a usable value.
func (f Field) HasValue() bool {
	return f.Freshness == Optimistic || f.Freshness == Confirmed
}

// Int returns the field value as an int.
func (f Field) Int() (int, bool) {
	if !f.HasValue() {
		return 0, false
	}
	switch n := f.Value.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// Bool returns the field value as a bool.
func (f Field) Bool() (bool, bool) {
	if !f.HasValue() {
		return false, false
	}
	b, ok := f.Value.(bool)
	return b, ok
}

// String returns the field value as a string.
func (f Field) String() (string, bool) {
	if !f.HasValue() {
		return "", false
	}
	s, ok := f.Value.(string)
	return s, ok
}

// State is an immutable player state snapshot. Mutating operations return
// a new State; the fields map is never shared between snapshots.
type State struct {
	DeviceID string              `json:"device_id"`
	Fields   map[FieldName]Field `json:"fields"`
}

// NewState builds the initial snapshot for a device: every field backed
// by a profiled capability starts Unknown, everything else is permanently
// Unsupported.
func NewState(p *profile.Profile) State {
	fields := make(map[FieldName]Field, len(fieldBindings))
	for name, b := range fieldBindings {
		if p.Supports(b.capability) {
			fields[name] = UnknownField()
		} else {
			fields[name] = UnsupportedField()
		}
	}
	return State{DeviceID: p.DeviceID(), Fields: fields}
}

// Field returns one field of the snapshot.
func (s State) Field(name FieldName) Field {
	return s.Fields[name]
}

// WithField returns a new snapshot with one field replaced.
// An Unsupported field is never replaced; unsupported is permanent.
func (s State) WithField(name FieldName, f Field) State {
	if s.Fields[name].Freshness == Unsupported {
		return s
	}
	return s.withField(name, f)
}

func (s State) withField(name FieldName, f Field) State {
	fields := make(map[FieldName]Field, len(s.Fields))
	for k, v := range s.Fields {
		fields[k] = v
	}
	fields[name] = f
	return State{DeviceID: s.DeviceID, Fields: fields}
}

// ControllableSources are input sources whose playback state the device
// actually reports; on anything else playbackStatus is stale noise.
var ControllableSources = []string{"bluetooth", "wifi"}

// DerivedState collapses the snapshot into a single host-facing state
// string: off, on, playing, paused, stopped, idle or unknown.
func (s State) DerivedState() string {
	power := s.Field(FieldPower)
	if power.Freshness == Unsupported {
		// Playback-only devices: report the playback state directly.
		if v, ok := s.Field(FieldPlayback).String(); ok {
			return v
		}
		return string(Unknown)
	}
	v, ok := power.String()
	if !ok {
		return string(Unknown)
	}
	if v == "off" {
		return "off"
	}

	if src, ok := s.Field(FieldSource).String(); ok && sourceControllable(src) {
		if pb, ok := s.Field(FieldPlayback).String(); ok {
			return pb
		}
	}
	return "on"
}

func sourceControllable(src string) bool {
	for _, c := range ControllableSources {
		if src == c {
			return true
		}
	}
	return false
}
