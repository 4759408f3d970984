// Package player holds the player state snapshot and its reconciler.
//
// A State is an immutable snapshot of one media player: power, playback,
// volume, mute, source, shuffle, repeat and track metadata. Each field is
// a tagged union — unsupported, unknown, optimistic(value, commandID) or
// confirmed(value, timestamp) — which makes the precedence rules between
// optimistic local guesses and confirmed remote reports mechanically
// checkable instead of ad-hoc flags on a mutable cell.
//
// Merge is the reconciler: a pure function folding attribute reports into
// a snapshot under last-writer-wins-per-field ordering. It never raises;
// malformed input degrades a field to unknown and emits a diagnostic.
package player
