package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stbridge/media-bridge-core/internal/capability"
	"github.com/stbridge/media-bridge-core/internal/infrastructure/config"
)

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestHealthCheck_NotConnected(t *testing.T) {
	c := &Client{}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestWrites_NoOpWhenDisconnected(t *testing.T) {
	// A disconnected client must swallow writes instead of panicking;
	// telemetry is best-effort.
	c := &Client{}

	c.WriteAttributeReport("device-1", capability.AttributeReport{
		Capability: capability.AudioVolume,
		Attribute:  capability.AttrVolume,
		Value:      float64(30),
		Timestamp:  time.Now(),
		Source:     capability.SourcePoll,
	})
	c.WriteCommandResult("device-1", "setVolume", "failed", 3)
	c.Flush()
}

func TestClose_NilClient(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
