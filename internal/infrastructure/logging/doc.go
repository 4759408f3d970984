// Package logging provides structured logging for the media bridge.
//
// It wraps log/slog with configuration-driven level filtering, JSON or text
// output, and default service/version fields. Components take a narrow Logger
// interface of their own so they can be tested with a noop implementation.
package logging
