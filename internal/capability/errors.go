package capability

import "errors"

// Domain errors for the capability package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, capability.ErrUnsupportedMutation) {
//	    // reject before touching the transport
//	}
var (
	// ErrUnknownCapability is returned when a capability ID is outside the
	// closed set the bridge understands.
	ErrUnknownCapability = errors.New("capability: unknown capability")

	// ErrUnknownAttribute is returned when an attribute name is not part of
	// the capability's attribute set.
	ErrUnknownAttribute = errors.New("capability: unknown attribute")

	// ErrUnsupportedMutation is returned when an attribute is read-only or
	// the desired value is outside its domain.
	ErrUnsupportedMutation = errors.New("capability: unsupported mutation")

	// ErrPushUnsupported is returned by Client.Subscribe when a device has
	// no push channel. Polling is then the sole report source.
	ErrPushUnsupported = errors.New("capability: push events unsupported")
)
