// Package capability defines the static capability model and the wire
// types shared across the bridge.
//
// This package manages:
//   - The closed set of capabilities the bridge understands
//   - Attribute descriptors with value domains (bool, int range, enum, string)
//   - Mapping a desired attribute value to the capability command that sets it
//   - The AttributeReport and Command wire shapes
//   - The Client interface consumed by the sync layer
//
// The model is a pure lookup table with no side effects. An attribute
// report for an unmapped capability or attribute is the caller's problem
// to drop; nothing here panics on unknown input.
package capability
