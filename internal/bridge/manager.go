package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/stbridge/media-bridge-core/internal/capability"
	"github.com/stbridge/media-bridge-core/internal/history"
	"github.com/stbridge/media-bridge-core/internal/infrastructure/config"
	"github.com/stbridge/media-bridge-core/internal/infrastructure/mqtt"
	"github.com/stbridge/media-bridge-core/internal/intent"
	"github.com/stbridge/media-bridge-core/internal/player"
	"github.com/stbridge/media-bridge-core/internal/profile"
	"github.com/stbridge/media-bridge-core/internal/syncer"
)

// Logger is the narrow logging interface the manager needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// StatePublisher is the outbound broker surface the manager uses.
// Satisfied by *mqtt.Client.
type StatePublisher interface {
	PublishRetained(topic string, payload []byte) error
	PublishEvent(topic string, payload []byte) error
}

// Recorder receives telemetry points. Satisfied by *telemetry.Client.
type Recorder interface {
	WriteAttributeReport(deviceID string, r capability.AttributeReport)
	WriteCommandResult(deviceID, command, outcome string, attempts int)
}

// Options configures a Manager. Publisher, History and Telemetry are
// optional; a nil value disables that fan-out.
type Options struct {
	Client    capability.Client
	Sync      config.SyncConfig
	Logger    Logger
	Publisher StatePublisher
	History   history.Repository
	Telemetry Recorder
}

// Manager owns one sync controller per attached device and fans
// reconciled state out to the broker, the history store, telemetry and
// any registered listeners.
type Manager struct {
	client    capability.Client
	syncCfg   config.SyncConfig
	logger    Logger
	publisher StatePublisher
	history   history.Repository
	telemetry Recorder

	mu          sync.RWMutex
	controllers map[string]*syncer.Controller

	listenerMu sync.RWMutex
	listeners  map[int]func(player.State)
	nextID     int
}

// NewManager creates a manager with no devices attached.
func NewManager(opts Options) (*Manager, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("bridge: capability client is required")
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	return &Manager{
		client:      opts.Client,
		syncCfg:     opts.Sync,
		logger:      opts.Logger,
		publisher:   opts.Publisher,
		history:     opts.History,
		telemetry:   opts.Telemetry,
		controllers: make(map[string]*syncer.Controller),
		listeners:   make(map[int]func(player.State)),
	}, nil
}

// Attach discovers a device's profile and starts its sync controller.
// Discovery failure leaves the device unattached; the caller decides
// whether to retry.
func (m *Manager) Attach(ctx context.Context, deviceID string) (*profile.Profile, error) {
	m.mu.Lock()
	if _, exists := m.controllers[deviceID]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyAttached, deviceID)
	}
	m.mu.Unlock()

	prof, err := profile.Discover(ctx, m.client, deviceID)
	if err != nil {
		return nil, err
	}

	ctrl, err := syncer.NewController(syncer.Options{
		Profile:         prof,
		Client:          m.client,
		Logger:          m.logger,
		OnStateChanged:  m.handleStateChanged,
		OnReports:       func(reports []capability.AttributeReport) { m.handleReports(deviceID, reports) },
		OnCommandFailed: func(p syncer.PendingCommand, err error) { m.handleCommandFailed(deviceID, p, err) },
		PollInterval:    m.syncCfg.GetPollInterval(),
		ConfirmWindow:   m.syncCfg.GetConfirmWindow(),
		CommandRetries:  m.syncCfg.CommandRetries,
		RetryBackoff:    m.syncCfg.GetRetryBackoff(),
		QueueSize:       m.syncCfg.CommandQueueSize,
	})
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if _, exists := m.controllers[deviceID]; exists {
		m.mu.Unlock()
		ctrl.Stop()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyAttached, deviceID)
	}
	m.controllers[deviceID] = ctrl
	m.mu.Unlock()

	if err := ctrl.Start(ctx); err != nil {
		m.mu.Lock()
		delete(m.controllers, deviceID)
		m.mu.Unlock()
		return nil, err
	}

	m.logger.Info("device attached",
		"device_id", deviceID,
		"capabilities", len(prof.Capabilities()))
	return prof, nil
}

// Detach stops a device's controller and releases its poll and push
// resources.
func (m *Manager) Detach(deviceID string) error {
	m.mu.Lock()
	ctrl, ok := m.controllers[deviceID]
	if ok {
		delete(m.controllers, deviceID)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, deviceID)
	}
	ctrl.Stop()
	m.logger.Info("device detached", "device_id", deviceID)
	return nil
}

// Dispatch routes an intent to a device's controller. Translation
// errors reject the intent before anything reaches the transport.
func (m *Manager) Dispatch(deviceID string, in intent.Intent) error {
	ctrl, err := m.controller(deviceID)
	if err != nil {
		return err
	}
	return ctrl.Dispatch(in)
}

// State returns the current snapshot for a device.
func (m *Manager) State(deviceID string) (player.State, error) {
	ctrl, err := m.controller(deviceID)
	if err != nil {
		return player.State{}, err
	}
	return ctrl.State(), nil
}

// Profile returns the discovered profile for a device.
func (m *Manager) Profile(deviceID string) (*profile.Profile, error) {
	ctrl, err := m.controller(deviceID)
	if err != nil {
		return nil, err
	}
	return ctrl.Profile(), nil
}

// Devices returns the attached device ids.
func (m *Manager) Devices() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.controllers))
	for id := range m.controllers {
		out = append(out, id)
	}
	return out
}

// AddListener registers a callback for every reconciled state change
// across all devices. The returned function removes the listener.
func (m *Manager) AddListener(fn func(player.State)) func() {
	m.listenerMu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.listenerMu.Unlock()

	return func() {
		m.listenerMu.Lock()
		delete(m.listeners, id)
		m.listenerMu.Unlock()
	}
}

// Stop detaches every device.
func (m *Manager) Stop() {
	m.mu.Lock()
	ctrls := make([]*syncer.Controller, 0, len(m.controllers))
	for id, c := range m.controllers {
		ctrls = append(ctrls, c)
		delete(m.controllers, id)
	}
	m.mu.Unlock()

	for _, c := range ctrls {
		c.Stop()
	}
}

func (m *Manager) controller(deviceID string) (*syncer.Controller, error) {
	m.mu.RLock()
	ctrl, ok := m.controllers[deviceID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, deviceID)
	}
	return ctrl, nil
}

// handleStateChanged fans a reconciled snapshot out to the broker, the
// history store and registered listeners. Fan-out failures are logged
// and never propagate back into reconciliation.
func (m *Manager) handleStateChanged(s player.State) {
	if m.publisher != nil {
		payload, err := json.Marshal(statePayload(s))
		if err == nil {
			topic := mqtt.Topics{}.DeviceState(s.DeviceID)
			if err := m.publisher.PublishRetained(topic, payload); err != nil {
				m.logger.Warn("state publish failed",
					"device_id", s.DeviceID, "error", err)
			}
		}
	}

	if m.history != nil {
		source := history.SourcePoll
		for _, f := range s.Fields {
			if f.Freshness == player.Optimistic {
				source = history.SourceCommand
				break
			}
		}
		if err := m.history.Record(context.Background(), s, source); err != nil {
			m.logger.Warn("history record failed",
				"device_id", s.DeviceID, "error", err)
		}
	}

	m.listenerMu.RLock()
	for _, fn := range m.listeners {
		fn(s)
	}
	m.listenerMu.RUnlock()
}

// handleReports forwards merged attribute reports to telemetry.
func (m *Manager) handleReports(deviceID string, reports []capability.AttributeReport) {
	if m.telemetry == nil {
		return
	}
	for _, r := range reports {
		m.telemetry.WriteAttributeReport(deviceID, r)
	}
}

// handleCommandFailed publishes a command failure event and records
// the outcome.
func (m *Manager) handleCommandFailed(deviceID string, p syncer.PendingCommand, err error) {
	m.logger.Warn("command did not converge",
		"device_id", deviceID,
		"command", p.Command.Command,
		"state", p.State,
		"error", err)

	if m.telemetry != nil {
		m.telemetry.WriteCommandResult(deviceID, p.Command.Command, string(p.State), p.Retries)
	}

	if m.publisher != nil {
		payload, jsonErr := json.Marshal(map[string]any{
			"device_id": deviceID,
			"command":   p.Command.Command,
			"state":     p.State,
			"error":     err.Error(),
		})
		if jsonErr == nil {
			topic := mqtt.Topics{}.DeviceEvent(deviceID)
			if pubErr := m.publisher.PublishEvent(topic, payload); pubErr != nil {
				m.logger.Warn("event publish failed",
					"device_id", deviceID, "error", pubErr)
			}
		}
	}
}

// statePayload is the wire shape of a published state snapshot.
func statePayload(s player.State) map[string]any {
	return map[string]any{
		"device_id": s.DeviceID,
		"derived":   s.DerivedState(),
		"fields":    s.Fields,
	}
}
