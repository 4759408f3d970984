package player

import (
	"fmt"
	"sort"

	"github.com/stbridge/media-bridge-core/internal/capability"
)

// Diagnostic describes a report the reconciler could not apply cleanly.
// Reconciliation itself never fails; it reports trouble out of band.
type Diagnostic struct {
	Reason string
	Report capability.AttributeReport
}

// Merge folds attribute reports into a snapshot and returns the new
// snapshot plus diagnostics for anything dropped or coerced.
//
// Rules:
//   - Reports are applied in timestamp order regardless of arrival order;
//     a report older than the field's current timestamp is discarded
//     (last-writer-wins per field, not per batch).
//   - A report for a capability outside the device profile hits an
//     Unsupported field and is discarded with a warning; the profile is
//     the source of truth for support, not the report stream.
//   - Any confirmed report overwrites an Optimistic field regardless of
//     timestamps. Remote truth beats local guesses.
//   - Malformed or out-of-domain values coerce the field to Unknown with
//     a diagnostic instead of raising.
//
// Merge is a pure function: it owns no state and never mutates its inputs.
func Merge(s State, reports []capability.AttributeReport) (State, []Diagnostic) {
	if len(reports) == 0 {
		return s, nil
	}

	// Stable sort keeps arrival order for equal timestamps.
	sorted := make([]capability.AttributeReport, len(reports))
	copy(sorted, reports)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var diags []Diagnostic
	for _, r := range sorted {
		s = applyReport(s, r, &diags)
	}
	return s, diags
}

func applyReport(s State, r capability.AttributeReport, diags *[]Diagnostic) State {
	name, ok := FieldFor(r.Capability, r.Attribute)
	if !ok {
		*diags = append(*diags, Diagnostic{
			Reason: fmt.Sprintf("unmapped attribute %s.%s", r.Capability, r.Attribute),
			Report: r,
		})
		return s
	}

	current := s.Field(name)
	if current.Freshness == Unsupported {
		*diags = append(*diags, Diagnostic{
			Reason: fmt.Sprintf("report for unsupported capability %s", r.Capability),
			Report: r,
		})
		return s
	}

	// A report older than the field's current value is stale and
	// discarded before anything else looks at it; a malformed stale
	// report must not clobber a newer value. Confirmed remote truth
	// still replaces an optimistic guess even when the report timestamp
	// predates the optimistic write.
	if current.Freshness != Optimistic && current.HasValue() && r.Timestamp.Before(current.UpdatedAt) {
		return s
	}

	value, ok := coerceValue(name, r.Value)
	if !ok {
		*diags = append(*diags, Diagnostic{
			Reason: fmt.Sprintf("value %v outside domain of %s", r.Value, name),
			Report: r,
		})
		return s.withField(name, UnknownField())
	}

	return s.withField(name, ConfirmedField(value, r.Timestamp))
}

// coerceValue normalises the loose wire representations SmartThings uses
// into the field's canonical Go type.
func coerceValue(name FieldName, raw any) (any, bool) {
	switch name {
	case FieldPower:
		s, ok := raw.(string)
		return s, ok && (s == "on" || s == "off")

	case FieldVolume:
		switch n := raw.(type) {
		case int:
			return n, n >= 0 && n <= 100
		case float64:
			if n != float64(int(n)) {
				return nil, false
			}
			v := int(n)
			return v, v >= 0 && v <= 100
		default:
			return nil, false
		}

	case FieldMuted:
		// Reported either as a bool or as "muted"/"unmuted".
		switch v := raw.(type) {
		case bool:
			return v, true
		case string:
			if v == "muted" {
				return true, true
			}
			if v == "unmuted" {
				return false, true
			}
		}
		return nil, false

	case FieldShuffle:
		// Reported either as a bool or as "enabled"/"disabled".
		switch v := raw.(type) {
		case bool:
			return v, true
		case string:
			if v == "enabled" {
				return true, true
			}
			if v == "disabled" {
				return false, true
			}
		}
		return nil, false

	case FieldPlayback:
		s, ok := raw.(string)
		if !ok {
			return nil, false
		}
		switch s {
		case capability.PlaybackPlaying, capability.PlaybackPaused,
			capability.PlaybackStopped, capability.PlaybackIdle:
			return s, true
		}
		return nil, false

	case FieldRepeat:
		s, ok := raw.(string)
		if !ok {
			return nil, false
		}
		switch s {
		case capability.RepeatOff, capability.RepeatOne, capability.RepeatAll:
			return s, true
		}
		return nil, false

	case FieldSource, FieldTrack:
		s, ok := raw.(string)
		return s, ok

	case FieldSourceList:
		return coerceSourceList(raw)

	default:
		return nil, false
	}
}

// coerceSourceList handles the three shapes supportedInputSources arrives
// in: a plain list, a list of any, or wrapped in a {"value": [...]} map.
func coerceSourceList(raw any) (any, bool) {
	switch v := raw.(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out, true
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case map[string]any:
		inner, ok := v["value"]
		if !ok {
			return nil, false
		}
		return coerceSourceList(inner)
	default:
		return nil, false
	}
}
