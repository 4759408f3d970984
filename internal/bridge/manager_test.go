package bridge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stbridge/media-bridge-core/internal/capability"
	"github.com/stbridge/media-bridge-core/internal/history"
	"github.com/stbridge/media-bridge-core/internal/infrastructure/config"
	"github.com/stbridge/media-bridge-core/internal/intent"
	"github.com/stbridge/media-bridge-core/internal/player"
	"github.com/stbridge/media-bridge-core/internal/profile"
)

// mockClient implements capability.Client for testing.
type mockClient struct {
	mu     sync.Mutex
	caps   []capability.ID
	status []capability.AttributeReport
	sent   []capability.Command
}

func (m *mockClient) ListCapabilities(ctx context.Context, deviceID string) ([]capability.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.caps, nil
}

func (m *mockClient) GetStatus(ctx context.Context, deviceID string) ([]capability.AttributeReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, nil
}

func (m *mockClient) SendCommand(ctx context.Context, deviceID string, cmd capability.Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, cmd)
	return nil
}

func (m *mockClient) Subscribe(ctx context.Context, deviceID string) (<-chan capability.AttributeReport, error) {
	return nil, capability.ErrPushUnsupported
}

// mockPublisher records published messages.
type mockPublisher struct {
	mu       sync.Mutex
	retained map[string][]byte
	events   map[string][]byte
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{
		retained: make(map[string][]byte),
		events:   make(map[string][]byte),
	}
}

func (p *mockPublisher) PublishRetained(topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.retained[topic] = payload
	return nil
}

func (p *mockPublisher) PublishEvent(topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[topic] = payload
	return nil
}

func (p *mockPublisher) retainedTopic(topic string) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.retained[topic]
}

// mockHistory records snapshots in memory.
type mockHistory struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (h *mockHistory) Record(ctx context.Context, state player.State, source string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, history.Entry{
		DeviceID: state.DeviceID,
		State:    state,
		Derived:  state.DerivedState(),
		Source:   source,
	})
	return nil
}

func (h *mockHistory) History(ctx context.Context, deviceID string, limit int) ([]history.Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]history.Entry, len(h.entries))
	copy(out, h.entries)
	return out, nil
}

func (h *mockHistory) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}

func (h *mockHistory) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

func syncConfig() config.SyncConfig {
	return config.SyncConfig{
		PollInterval:     3600,
		ConfirmWindow:    1,
		CommandRetries:   3,
		RetryBackoff:     1,
		CommandQueueSize: 8,
	}
}

func newTestManager(t *testing.T, client *mockClient, pub *mockPublisher, hist *mockHistory) *Manager {
	t.Helper()
	opts := Options{
		Client: client,
		Sync:   syncConfig(),
	}
	if pub != nil {
		opts.Publisher = pub
	}
	if hist != nil {
		opts.History = hist
	}
	m, err := NewManager(opts)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	t.Cleanup(m.Stop)
	return m
}

func TestAttachAndFanOut(t *testing.T) {
	client := &mockClient{
		caps: capability.All(),
		status: []capability.AttributeReport{{
			Capability: capability.Switch,
			Attribute:  capability.AttrSwitch,
			Value:      "on",
			Timestamp:  time.Now(),
			Source:     capability.SourcePoll,
		}},
	}
	pub := newMockPublisher()
	hist := &mockHistory{}
	m := newTestManager(t, client, pub, hist)

	prof, err := m.Attach(context.Background(), "device-1")
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	if !prof.Supports(capability.Switch) {
		t.Error("profile should support switch")
	}

	// Initial poll seeds state; fan-out should have fired.
	payload := pub.retainedTopic("mediabridge/state/device-1")
	if payload == nil {
		t.Fatal("no retained state published")
	}
	if !strings.Contains(string(payload), `"device_id":"device-1"`) {
		t.Errorf("payload missing device id: %s", payload)
	}
	if hist.count() == 0 {
		t.Error("no history entry recorded")
	}

	s, err := m.State("device-1")
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if v, _ := s.Field(player.FieldPower).String(); v != "on" {
		t.Errorf("power = %q, want on", v)
	}
}

func TestAttach_Twice(t *testing.T) {
	client := &mockClient{caps: capability.All()}
	m := newTestManager(t, client, nil, nil)

	if _, err := m.Attach(context.Background(), "device-1"); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	if _, err := m.Attach(context.Background(), "device-1"); !errors.Is(err, ErrAlreadyAttached) {
		t.Errorf("second Attach() error = %v, want ErrAlreadyAttached", err)
	}
}

func TestAttach_NotMediaPlayer(t *testing.T) {
	client := &mockClient{caps: []capability.ID{capability.AudioVolume}}
	m := newTestManager(t, client, nil, nil)

	_, err := m.Attach(context.Background(), "device-1")
	if !errors.Is(err, profile.ErrNotMediaPlayer) {
		t.Errorf("Attach() error = %v, want ErrNotMediaPlayer", err)
	}
	if len(m.Devices()) != 0 {
		t.Error("failed attach should leave no controller behind")
	}
}

func TestDetach(t *testing.T) {
	client := &mockClient{caps: capability.All()}
	m := newTestManager(t, client, nil, nil)

	if _, err := m.Attach(context.Background(), "device-1"); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	if err := m.Detach("device-1"); err != nil {
		t.Fatalf("Detach() error = %v", err)
	}
	if _, err := m.State("device-1"); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("State() after detach error = %v, want ErrUnknownDevice", err)
	}
	if err := m.Detach("device-1"); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("second Detach() error = %v, want ErrUnknownDevice", err)
	}
}

func TestDispatch_RoutesToController(t *testing.T) {
	client := &mockClient{caps: capability.All()}
	m := newTestManager(t, client, nil, nil)

	if _, err := m.Attach(context.Background(), "device-1"); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	if err := m.Dispatch("device-1", intent.PowerOn()); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if err := m.Dispatch("device-9", intent.PowerOn()); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("Dispatch(unknown) error = %v, want ErrUnknownDevice", err)
	}
}

func TestAddListener(t *testing.T) {
	client := &mockClient{
		caps: capability.All(),
		status: []capability.AttributeReport{{
			Capability: capability.AudioVolume,
			Attribute:  capability.AttrVolume,
			Value:      float64(30),
			Timestamp:  time.Now(),
			Source:     capability.SourcePoll,
		}},
	}
	m := newTestManager(t, client, nil, nil)

	var mu sync.Mutex
	var got []player.State
	remove := m.AddListener(func(s player.State) {
		mu.Lock()
		got = append(got, s)
		mu.Unlock()
	})

	if _, err := m.Attach(context.Background(), "device-1"); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	mu.Lock()
	n := len(got)
	mu.Unlock()
	if n == 0 {
		t.Fatal("listener never notified")
	}

	remove()
	if err := m.Dispatch("device-1", intent.SetVolume(50)); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	mu.Lock()
	after := len(got)
	mu.Unlock()
	if after != n {
		t.Error("removed listener still receiving notifications")
	}
}
