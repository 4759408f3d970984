package profile

import (
	"context"
	"fmt"

	"github.com/stbridge/media-bridge-core/internal/capability"
)

// Profile is a per-device snapshot of supported capabilities.
//
// It is resolved once at attach time and is immutable afterwards: the
// capability set of a session never flips while commands are in flight.
// Rediscovery is an explicit operation producing a new Profile.
type Profile struct {
	deviceID string
	caps     map[capability.ID]struct{}
}

// Discover builds a Profile from the device's capability-list query.
//
// Capabilities outside the closed set the bridge understands are ignored;
// the device may expose dozens of vendor capabilities the media layer has
// no use for. Transport failure is wrapped in ErrDiscovery and propagated
// without internal retries. A device lacking both switch and mediaPlayback
// fails with ErrNotMediaPlayer.
func Discover(ctx context.Context, client capability.Client, deviceID string) (*Profile, error) {
	ids, err := client.ListCapabilities(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: device %s: %w", ErrDiscovery, deviceID, err)
	}

	caps := make(map[capability.ID]struct{})
	for _, id := range ids {
		if capability.IsKnown(id) {
			caps[id] = struct{}{}
		}
	}

	p := &Profile{deviceID: deviceID, caps: caps}
	if !p.Supports(capability.Switch) && !p.Supports(capability.MediaPlayback) {
		return nil, fmt.Errorf("%w: device %s", ErrNotMediaPlayer, deviceID)
	}
	return p, nil
}

// Rediscover queries the device again and returns a fresh Profile.
// The receiver is left untouched; callers swap profiles atomically.
func (p *Profile) Rediscover(ctx context.Context, client capability.Client) (*Profile, error) {
	return Discover(ctx, client, p.deviceID)
}

// DeviceID returns the device this profile describes.
func (p *Profile) DeviceID() string {
	return p.deviceID
}

// Supports reports whether the device supports the capability.
func (p *Profile) Supports(id capability.ID) bool {
	_, ok := p.caps[id]
	return ok
}

// Capabilities returns the supported capabilities in model order.
func (p *Profile) Capabilities() []capability.ID {
	out := make([]capability.ID, 0, len(p.caps))
	for _, id := range capability.All() {
		if p.Supports(id) {
			out = append(out, id)
		}
	}
	return out
}
