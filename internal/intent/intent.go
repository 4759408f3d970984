package intent

import "fmt"

// Kind enumerates the user intents the bridge accepts.
type Kind string

// Intent kinds.
const (
	KindPowerOn       Kind = "power_on"
	KindPowerOff      Kind = "power_off"
	KindSetVolume     Kind = "set_volume"
	KindVolumeStep    Kind = "volume_step"
	KindSetMute       Kind = "set_mute"
	KindSelectSource  Kind = "select_source"
	KindSetShuffle    Kind = "set_shuffle"
	KindSetRepeat     Kind = "set_repeat"
	KindPlay          Kind = "play"
	KindPause         Kind = "pause"
	KindStop          Kind = "stop"
	KindNextTrack     Kind = "next_track"
	KindPreviousTrack Kind = "previous_track"
)

// Intent is one high-level user request against a device. Only the
// payload field matching the kind is meaningful.
type Intent struct {
	Kind Kind `json:"kind"`

	// Volume is the absolute target for set_volume (0-100).
	Volume int `json:"volume,omitempty"`

	// Step is the signed delta for volume_step.
	Step int `json:"step,omitempty"`

	// Mute is the target for set_mute.
	Mute bool `json:"mute,omitempty"`

	// Source is the target for select_source.
	Source string `json:"source,omitempty"`

	// Shuffle is the target for set_shuffle.
	Shuffle bool `json:"shuffle,omitempty"`

	// Repeat is the target for set_repeat: off, one or all.
	Repeat string `json:"repeat,omitempty"`
}

// PowerOn builds a power-on intent.
func PowerOn() Intent { return Intent{Kind: KindPowerOn} }

// PowerOff builds a power-off intent.
func PowerOff() Intent { return Intent{Kind: KindPowerOff} }

// SetVolume builds an absolute volume intent.
func SetVolume(v int) Intent { return Intent{Kind: KindSetVolume, Volume: v} }

// VolumeStep builds a relative volume intent.
func VolumeStep(delta int) Intent { return Intent{Kind: KindVolumeStep, Step: delta} }

// SetMute builds a mute/unmute intent.
func SetMute(mute bool) Intent { return Intent{Kind: KindSetMute, Mute: mute} }

// SelectSource builds an input source intent.
func SelectSource(source string) Intent { return Intent{Kind: KindSelectSource, Source: source} }

// SetShuffle builds a shuffle intent.
func SetShuffle(on bool) Intent { return Intent{Kind: KindSetShuffle, Shuffle: on} }

// SetRepeat builds a repeat mode intent.
func SetRepeat(mode string) Intent { return Intent{Kind: KindSetRepeat, Repeat: mode} }

// Play builds a play intent.
func Play() Intent { return Intent{Kind: KindPlay} }

// Pause builds a pause intent.
func Pause() Intent { return Intent{Kind: KindPause} }

// Stop builds a stop intent.
func Stop() Intent { return Intent{Kind: KindStop} }

// NextTrack builds a track-skip-forward intent.
func NextTrack() Intent { return Intent{Kind: KindNextTrack} }

// PreviousTrack builds a track-skip-backward intent.
func PreviousTrack() Intent { return Intent{Kind: KindPreviousTrack} }

func (i Intent) String() string {
	switch i.Kind {
	case KindSetVolume:
		return fmt.Sprintf("%s(%d)", i.Kind, i.Volume)
	case KindVolumeStep:
		return fmt.Sprintf("%s(%+d)", i.Kind, i.Step)
	case KindSetMute:
		return fmt.Sprintf("%s(%t)", i.Kind, i.Mute)
	case KindSelectSource:
		return fmt.Sprintf("%s(%s)", i.Kind, i.Source)
	case KindSetShuffle:
		return fmt.Sprintf("%s(%t)", i.Kind, i.Shuffle)
	case KindSetRepeat:
		return fmt.Sprintf("%s(%s)", i.Kind, i.Repeat)
	default:
		return string(i.Kind)
	}
}
