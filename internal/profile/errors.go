package profile

import "errors"

// Domain errors for the profile package.
var (
	// ErrDiscovery is returned when the capability-list query fails.
	// The caller owns retry policy; discovery is never retried here.
	ErrDiscovery = errors.New("profile: discovery failed")

	// ErrNotMediaPlayer is returned when a device supports neither switch
	// nor mediaPlayback and therefore cannot be driven as a media player.
	ErrNotMediaPlayer = errors.New("profile: device is not a media player")
)
