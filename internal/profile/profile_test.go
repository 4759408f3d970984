package profile

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/stbridge/media-bridge-core/internal/capability"
)

// MockClient implements capability.Client for testing.
type MockClient struct {
	mu       sync.Mutex
	caps     []capability.ID
	listErr  error
	listFreq int
}

func (m *MockClient) ListCapabilities(ctx context.Context, deviceID string) ([]capability.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listFreq++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.caps, nil
}

func (m *MockClient) GetStatus(ctx context.Context, deviceID string) ([]capability.AttributeReport, error) {
	return nil, nil
}

func (m *MockClient) SendCommand(ctx context.Context, deviceID string, cmd capability.Command) error {
	return nil
}

func (m *MockClient) Subscribe(ctx context.Context, deviceID string) (<-chan capability.AttributeReport, error) {
	return nil, capability.ErrPushUnsupported
}

func TestDiscover(t *testing.T) {
	client := &MockClient{caps: []capability.ID{
		capability.Switch,
		capability.AudioVolume,
		capability.MediaPlayback,
		"samsungce.soundFrom", // vendor capability, ignored
	}}

	p, err := Discover(context.Background(), client, "device-1")
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	if p.DeviceID() != "device-1" {
		t.Errorf("DeviceID() = %q, want device-1", p.DeviceID())
	}
	if !p.Supports(capability.AudioVolume) {
		t.Error("expected audioVolume to be supported")
	}
	if p.Supports(capability.MediaInputSource) {
		t.Error("mediaInputSource should not be supported")
	}
	if p.Supports("samsungce.soundFrom") {
		t.Error("vendor capability should have been dropped")
	}

	want := []capability.ID{capability.Switch, capability.AudioVolume, capability.MediaPlayback}
	if got := p.Capabilities(); !reflect.DeepEqual(got, want) {
		t.Errorf("Capabilities() = %v, want %v", got, want)
	}
}

func TestDiscover_TransportFailure(t *testing.T) {
	client := &MockClient{listErr: fmt.Errorf("connection refused")}

	_, err := Discover(context.Background(), client, "device-1")
	if !errors.Is(err, ErrDiscovery) {
		t.Errorf("error = %v, want ErrDiscovery", err)
	}
	if client.listFreq != 1 {
		t.Errorf("ListCapabilities called %d times, want 1 (no internal retry)", client.listFreq)
	}
}

func TestDiscover_NotMediaPlayer(t *testing.T) {
	client := &MockClient{caps: []capability.ID{capability.AudioVolume, capability.AudioMute}}

	_, err := Discover(context.Background(), client, "device-1")
	if !errors.Is(err, ErrNotMediaPlayer) {
		t.Errorf("error = %v, want ErrNotMediaPlayer", err)
	}
}

func TestRediscover_ReturnsFreshProfile(t *testing.T) {
	client := &MockClient{caps: []capability.ID{capability.Switch}}

	p, err := Discover(context.Background(), client, "device-1")
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	// Device gained a capability since the original discovery.
	client.mu.Lock()
	client.caps = []capability.ID{capability.Switch, capability.AudioVolume}
	client.mu.Unlock()

	fresh, err := p.Rediscover(context.Background(), client)
	if err != nil {
		t.Fatalf("Rediscover() error = %v", err)
	}
	if !fresh.Supports(capability.AudioVolume) {
		t.Error("fresh profile should support audioVolume")
	}
	if p.Supports(capability.AudioVolume) {
		t.Error("original profile must be untouched")
	}
}

func TestDiscover_MediaPlaybackAloneQualifies(t *testing.T) {
	client := &MockClient{caps: []capability.ID{capability.MediaPlayback}}

	if _, err := Discover(context.Background(), client, "device-1"); err != nil {
		t.Errorf("Discover() error = %v, want nil", err)
	}
}
