package player

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stbridge/media-bridge-core/internal/capability"
	"github.com/stbridge/media-bridge-core/internal/profile"
)

// listClient is a minimal capability.Client whose only working method is
// ListCapabilities, enough to build profiles for reconciler tests.
type listClient struct {
	caps []capability.ID
}

func (c *listClient) ListCapabilities(ctx context.Context, deviceID string) ([]capability.ID, error) {
	return c.caps, nil
}

func (c *listClient) GetStatus(ctx context.Context, deviceID string) ([]capability.AttributeReport, error) {
	return nil, nil
}

func (c *listClient) SendCommand(ctx context.Context, deviceID string, cmd capability.Command) error {
	return nil
}

func (c *listClient) Subscribe(ctx context.Context, deviceID string) (<-chan capability.AttributeReport, error) {
	return nil, capability.ErrPushUnsupported
}

func testState(t *testing.T, caps ...capability.ID) State {
	t.Helper()
	p, err := profile.Discover(context.Background(), &listClient{caps: caps}, "device-1")
	if err != nil {
		t.Fatalf("building test profile: %v", err)
	}
	return NewState(p)
}

func fullState(t *testing.T) State {
	t.Helper()
	return testState(t, capability.All()...)
}

func report(cap capability.ID, attr string, value any, ts time.Time) capability.AttributeReport {
	return capability.AttributeReport{
		Capability: cap,
		Attribute:  attr,
		Value:      value,
		Timestamp:  ts,
		Source:     capability.SourcePoll,
	}
}

func TestNewState_UnsupportedFields(t *testing.T) {
	s := testState(t, capability.Switch, capability.MediaPlayback)

	if got := s.Field(FieldVolume).Freshness; got != Unsupported {
		t.Errorf("volume freshness = %v, want unsupported", got)
	}
	if got := s.Field(FieldPower).Freshness; got != Unknown {
		t.Errorf("power freshness = %v, want unknown", got)
	}
}

func TestMerge_UnsupportedFieldNeverTransitions(t *testing.T) {
	s := testState(t, capability.Switch, capability.MediaPlayback)
	ts := time.Now()

	s2, diags := Merge(s, []capability.AttributeReport{
		report(capability.AudioVolume, capability.AttrVolume, 40, ts),
	})

	if got := s2.Field(FieldVolume).Freshness; got != Unsupported {
		t.Errorf("volume freshness = %v, want unsupported (permanent)", got)
	}
	if len(diags) != 1 || !strings.Contains(diags[0].Reason, "unsupported capability") {
		t.Errorf("expected one unsupported-capability diagnostic, got %v", diags)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	s := fullState(t)
	r := report(capability.AudioVolume, capability.AttrVolume, 40, time.Now())

	once, _ := Merge(s, []capability.AttributeReport{r})
	twice, _ := Merge(once, []capability.AttributeReport{r})

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("applying the same report twice diverged:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestMerge_MonotonicTime(t *testing.T) {
	s := fullState(t)
	t1 := time.Unix(1, 0)
	t0 := time.Unix(0, 0)

	// Newer report first, older report arrives later in a second batch.
	s, _ = Merge(s, []capability.AttributeReport{
		report(capability.AudioVolume, capability.AttrVolume, 20, t1),
	})
	s, _ = Merge(s, []capability.AttributeReport{
		report(capability.AudioVolume, capability.AttrVolume, 50, t0),
	})

	if v, _ := s.Field(FieldVolume).Int(); v != 20 {
		t.Errorf("volume = %d, want 20 (older report discarded)", v)
	}
}

func TestMerge_SingleBatchSortedByTimestamp(t *testing.T) {
	s := fullState(t)
	t0, t1 := time.Unix(0, 0), time.Unix(1, 0)

	// Out of order within one batch: newest must still win.
	s, _ = Merge(s, []capability.AttributeReport{
		report(capability.AudioVolume, capability.AttrVolume, 20, t1),
		report(capability.AudioVolume, capability.AttrVolume, 50, t0),
	})

	if v, _ := s.Field(FieldVolume).Int(); v != 20 {
		t.Errorf("volume = %d, want 20 (batch applied in timestamp order)", v)
	}
}

func TestMerge_ConfirmedBeatsOptimistic(t *testing.T) {
	s := fullState(t)
	optimisticAt := time.Unix(100, 0)
	reportAt := time.Unix(50, 0) // older than the optimistic write

	s = s.WithField(FieldVolume, OptimisticField(40, "cmd-1", optimisticAt))
	s, _ = Merge(s, []capability.AttributeReport{
		report(capability.AudioVolume, capability.AttrVolume, 35, reportAt),
	})

	f := s.Field(FieldVolume)
	if f.Freshness != Confirmed {
		t.Errorf("freshness = %v, want confirmed", f.Freshness)
	}
	if v, _ := f.Int(); v != 35 {
		t.Errorf("volume = %d, want 35 (confirmed wins over optimistic)", v)
	}
}

func TestMerge_MuteDoesNotTouchVolume(t *testing.T) {
	s := fullState(t)
	ts := time.Now()

	s, _ = Merge(s, []capability.AttributeReport{
		report(capability.AudioVolume, capability.AttrVolume, 60, ts),
	})
	s, _ = Merge(s, []capability.AttributeReport{
		report(capability.AudioMute, capability.AttrMute, "muted", ts.Add(time.Second)),
	})

	if v, _ := s.Field(FieldVolume).Int(); v != 60 {
		t.Errorf("volume = %d, want 60 (mute must not alter volume)", v)
	}
	if muted, _ := s.Field(FieldMuted).Bool(); !muted {
		t.Error("muted = false, want true")
	}
}

func TestMerge_IdleDoesNotClearSource(t *testing.T) {
	s := fullState(t)
	ts := time.Now()

	s, _ = Merge(s, []capability.AttributeReport{
		report(capability.MediaInputSource, capability.AttrInputSource, "wifi", ts),
	})
	s, _ = Merge(s, []capability.AttributeReport{
		report(capability.MediaPlayback, capability.AttrPlaybackStatus, capability.PlaybackIdle, ts.Add(time.Second)),
	})

	if src, _ := s.Field(FieldSource).String(); src != "wifi" {
		t.Errorf("source = %q, want wifi (idle must not clear source)", src)
	}
}

func TestMerge_OutOfDomainCoercesToUnknown(t *testing.T) {
	s := fullState(t)
	ts := time.Now()

	s, _ = Merge(s, []capability.AttributeReport{
		report(capability.AudioVolume, capability.AttrVolume, 60, ts),
	})
	s, diags := Merge(s, []capability.AttributeReport{
		report(capability.AudioVolume, capability.AttrVolume, 250, ts.Add(time.Second)),
	})

	if got := s.Field(FieldVolume).Freshness; got != Unknown {
		t.Errorf("volume freshness = %v, want unknown after malformed report", got)
	}
	if len(diags) != 1 {
		t.Errorf("expected one diagnostic, got %d", len(diags))
	}
}

func TestMerge_StaleMalformedReportDiscarded(t *testing.T) {
	s := fullState(t)
	t0, t1 := time.Unix(50, 0), time.Unix(100, 0)

	s, _ = Merge(s, []capability.AttributeReport{
		report(capability.AudioVolume, capability.AttrVolume, 20, t1),
	})
	// An out-of-domain value with an older timestamp is stale first,
	// malformed second: it must not wipe the newer confirmed value.
	s, _ = Merge(s, []capability.AttributeReport{
		report(capability.AudioVolume, capability.AttrVolume, 500, t0),
	})

	f := s.Field(FieldVolume)
	if f.Freshness != Confirmed {
		t.Errorf("freshness = %v, want confirmed (stale report discarded)", f.Freshness)
	}
	if v, _ := f.Int(); v != 20 {
		t.Errorf("volume = %d, want 20", v)
	}
}

func TestMerge_UnmappedAttributeDropped(t *testing.T) {
	s := fullState(t)

	s2, diags := Merge(s, []capability.AttributeReport{
		report(capability.Switch, "color", "red", time.Now()),
	})

	if !reflect.DeepEqual(s, s2) {
		t.Error("unmapped report must not change state")
	}
	if len(diags) != 1 || !strings.Contains(diags[0].Reason, "unmapped") {
		t.Errorf("expected unmapped diagnostic, got %v", diags)
	}
}

func TestMerge_ValueCoercion(t *testing.T) {
	tests := []struct {
		name  string
		cap   capability.ID
		attr  string
		raw   any
		field FieldName
		want  any
	}{
		{"float volume", capability.AudioVolume, capability.AttrVolume, float64(42), FieldVolume, 42},
		{"mute string", capability.AudioMute, capability.AttrMute, "unmuted", FieldMuted, false},
		{"shuffle enabled", capability.PlaybackShuffle, capability.AttrShuffle, "enabled", FieldShuffle, true},
		{"shuffle bool", capability.PlaybackShuffle, capability.AttrShuffle, false, FieldShuffle, false},
		{"repeat mode", capability.PlaybackRepeat, capability.AttrRepeatMode, "one", FieldRepeat, "one"},
		{
			"source list wrapped", capability.MediaInputSource, capability.AttrSupportedSources,
			map[string]any{"value": []any{"wifi", "HDMI1"}}, FieldSourceList, []string{"wifi", "HDMI1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := fullState(t)
			s, diags := Merge(s, []capability.AttributeReport{
				report(tt.cap, tt.attr, tt.raw, time.Now()),
			})
			if len(diags) != 0 {
				t.Fatalf("unexpected diagnostics: %v", diags)
			}
			if got := s.Field(tt.field).Value; !reflect.DeepEqual(got, tt.want) {
				t.Errorf("field %s = %#v, want %#v", tt.field, got, tt.want)
			}
		})
	}
}

func TestState_DerivedState(t *testing.T) {
	ts := time.Now()

	tests := []struct {
		name    string
		reports []capability.AttributeReport
		want    string
	}{
		{
			name: "off",
			reports: []capability.AttributeReport{
				report(capability.Switch, capability.AttrSwitch, "off", ts),
			},
			want: "off",
		},
		{
			name: "on with uncontrollable source",
			reports: []capability.AttributeReport{
				report(capability.Switch, capability.AttrSwitch, "on", ts),
				report(capability.MediaInputSource, capability.AttrInputSource, "HDMI1", ts),
				report(capability.MediaPlayback, capability.AttrPlaybackStatus, "playing", ts),
			},
			want: "on",
		},
		{
			name: "playing over wifi",
			reports: []capability.AttributeReport{
				report(capability.Switch, capability.AttrSwitch, "on", ts),
				report(capability.MediaInputSource, capability.AttrInputSource, "wifi", ts),
				report(capability.MediaPlayback, capability.AttrPlaybackStatus, "playing", ts),
			},
			want: "playing",
		},
		{
			name:    "nothing observed",
			reports: nil,
			want:    "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := fullState(t)
			s, _ = Merge(s, tt.reports)
			if got := s.DerivedState(); got != tt.want {
				t.Errorf("DerivedState() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestState_WithFieldDoesNotMutateOriginal(t *testing.T) {
	s := fullState(t)
	s2 := s.WithField(FieldVolume, ConfirmedField(10, time.Now()))

	if s.Field(FieldVolume).HasValue() {
		t.Error("WithField mutated the original snapshot")
	}
	if v, _ := s2.Field(FieldVolume).Int(); v != 10 {
		t.Errorf("new snapshot volume = %d, want 10", v)
	}
}
