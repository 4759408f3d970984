package syncer

import "errors"

var (
	// ErrStopped is returned when dispatching to a stopped controller.
	ErrStopped = errors.New("syncer: controller stopped")

	// ErrInvalidOptions is returned by NewController when required
	// options are missing.
	ErrInvalidOptions = errors.New("syncer: invalid options")

	// ErrCommandFailed wraps the transport error after retries are
	// exhausted; it is the user-visible failure for one intent.
	ErrCommandFailed = errors.New("syncer: command failed")
)
