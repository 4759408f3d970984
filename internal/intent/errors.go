package intent

import "errors"

// Domain errors for the intent package.
var (
	// ErrCapabilityNotSupported is returned when an intent targets a
	// capability absent from the device profile. Rejected locally, before
	// any transport call.
	ErrCapabilityNotSupported = errors.New("intent: capability not supported by device")

	// ErrUnknownBaseline is returned for a relative volume step when no
	// volume has ever been observed. The caller should surface the device
	// as unavailable rather than guessing a baseline.
	ErrUnknownBaseline = errors.New("intent: no volume baseline observed")

	// ErrInvalidIntent is returned when an intent kind is unknown or its
	// payload is outside the attribute's value domain.
	ErrInvalidIntent = errors.New("intent: invalid")
)
