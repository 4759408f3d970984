package intent

import (
	"fmt"

	"github.com/stbridge/media-bridge-core/internal/capability"
	"github.com/stbridge/media-bridge-core/internal/player"
	"github.com/stbridge/media-bridge-core/internal/profile"
)

// CommandIntent is one capability command plus the state field it targets.
// Field is empty for pure actions (track skip) that have no optimistic
// state to apply.
type CommandIntent struct {
	Command capability.Command
	Field   player.FieldName
	Desired any
}

// Translate converts a high-level intent into the ordered capability
// commands that realise it.
//
// Rules:
//   - Intents for capabilities absent from the profile fail with
//     ErrCapabilityNotSupported, immediately, without touching the
//     transport.
//   - VolumeStep is resolved against the last known volume (confirmed or
//     optimistic), clamped to [0,100]. With no baseline it fails with
//     ErrUnknownBaseline.
//   - A volume-up step on a muted device issues an unmute first; the two
//     resulting commands are independent, no atomicity is assumed.
//
// Translate is pure: it reads the profile and current state, produces
// descriptors, and leaves dispatch to the sync controller.
func Translate(in Intent, prof *profile.Profile, current player.State) ([]CommandIntent, error) {
	switch in.Kind {
	case KindPowerOn:
		return single(prof, capability.Switch, capability.AttrSwitch, "on", player.FieldPower)
	case KindPowerOff:
		return single(prof, capability.Switch, capability.AttrSwitch, "off", player.FieldPower)

	case KindSetVolume:
		return single(prof, capability.AudioVolume, capability.AttrVolume, in.Volume, player.FieldVolume)

	case KindVolumeStep:
		return translateVolumeStep(in, prof, current)

	case KindSetMute:
		return single(prof, capability.AudioMute, capability.AttrMute, in.Mute, player.FieldMuted)

	case KindSelectSource:
		return single(prof, capability.MediaInputSource, capability.AttrInputSource, in.Source, player.FieldSource)

	case KindSetShuffle:
		return single(prof, capability.PlaybackShuffle, capability.AttrShuffle, in.Shuffle, player.FieldShuffle)

	case KindSetRepeat:
		return single(prof, capability.PlaybackRepeat, capability.AttrRepeatMode, in.Repeat, player.FieldRepeat)

	case KindPlay:
		return single(prof, capability.MediaPlayback, capability.AttrPlaybackStatus, capability.PlaybackPlaying, player.FieldPlayback)
	case KindPause:
		return single(prof, capability.MediaPlayback, capability.AttrPlaybackStatus, capability.PlaybackPaused, player.FieldPlayback)
	case KindStop:
		return single(prof, capability.MediaPlayback, capability.AttrPlaybackStatus, capability.PlaybackStopped, player.FieldPlayback)

	case KindNextTrack, KindPreviousTrack:
		if !prof.Supports(capability.MediaTrackControl) {
			return nil, fmt.Errorf("%w: %s needs %s", ErrCapabilityNotSupported, in.Kind, capability.MediaTrackControl)
		}
		return []CommandIntent{
			{Command: capability.NewTrackCommand(in.Kind == KindNextTrack)},
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidIntent, in.Kind)
	}
}

// single builds the one-command translation for a plain attribute write.
func single(prof *profile.Profile, cap capability.ID, attr string, desired any, field player.FieldName) ([]CommandIntent, error) {
	if !prof.Supports(cap) {
		return nil, fmt.Errorf("%w: %s", ErrCapabilityNotSupported, cap)
	}
	cmd, err := capability.CommandFor(cap, attr, desired)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIntent, err)
	}
	return []CommandIntent{{Command: cmd, Field: field, Desired: desired}}, nil
}

func translateVolumeStep(in Intent, prof *profile.Profile, current player.State) ([]CommandIntent, error) {
	if !prof.Supports(capability.AudioVolume) {
		return nil, fmt.Errorf("%w: %s", ErrCapabilityNotSupported, capability.AudioVolume)
	}

	baseline, ok := current.Field(player.FieldVolume).Int()
	if !ok {
		return nil, fmt.Errorf("%w: volume_step(%+d)", ErrUnknownBaseline, in.Step)
	}

	target := baseline + in.Step
	if target < 0 {
		target = 0
	}
	if target > 100 {
		target = 100
	}

	var out []CommandIntent

	// Stepping up while muted implies an unmute; the device would raise
	// volume inaudibly otherwise.
	if in.Step > 0 && prof.Supports(capability.AudioMute) {
		if muted, ok := current.Field(player.FieldMuted).Bool(); ok && muted {
			unmute, err := capability.CommandFor(capability.AudioMute, capability.AttrMute, false)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidIntent, err)
			}
			out = append(out, CommandIntent{Command: unmute, Field: player.FieldMuted, Desired: false})
		}
	}

	cmd, err := capability.CommandFor(capability.AudioVolume, capability.AttrVolume, target)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIntent, err)
	}
	return append(out, CommandIntent{Command: cmd, Field: player.FieldVolume, Desired: target}), nil
}
