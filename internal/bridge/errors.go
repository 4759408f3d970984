package bridge

import "errors"

var (
	// ErrUnknownDevice is returned when addressing a device that is
	// not attached.
	ErrUnknownDevice = errors.New("bridge: unknown device")

	// ErrAlreadyAttached is returned when attaching a device twice.
	ErrAlreadyAttached = errors.New("bridge: device already attached")
)
