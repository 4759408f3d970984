package syncer

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stbridge/media-bridge-core/internal/capability"
	"github.com/stbridge/media-bridge-core/internal/intent"
	"github.com/stbridge/media-bridge-core/internal/player"
	"github.com/stbridge/media-bridge-core/internal/profile"
)

// Logger is the narrow logging interface the controller needs.
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

// Options configures a Controller.
type Options struct {
	Profile *profile.Profile
	Client  capability.Client
	Logger  Logger

	// OnStateChanged receives a snapshot after every reconciliation
	// step that changed the state. Invoked at most once per step,
	// outside the controller lock.
	OnStateChanged func(player.State)

	// OnReports receives the raw attribute reports of each
	// reconciliation step, after merging. Optional; used for
	// telemetry fan-out.
	OnReports func([]capability.AttributeReport)

	// OnCommandFailed is invoked once per pending command that
	// terminates as failed or expired.
	OnCommandFailed func(PendingCommand, error)

	PollInterval   time.Duration
	ConfirmWindow  time.Duration
	CommandRetries int
	RetryBackoff   time.Duration
	QueueSize      int
}

// Controller drives one device: it serializes outbound commands,
// applies optimistic state, polls and subscribes for reports, and
// reconciles every report batch into the device state.
type Controller struct {
	deviceID string
	prof     *profile.Profile
	client   capability.Client
	logger   Logger

	onStateChanged  func(player.State)
	onReports       func([]capability.AttributeReport)
	onCommandFailed func(PendingCommand, error)

	pollInterval  time.Duration
	confirmWindow time.Duration
	retries       int
	backoff       time.Duration

	mu      sync.Mutex
	state   player.State
	pending map[string]*PendingCommand
	byField map[player.FieldName]string
	revert  map[string]player.Field
	timers  map[string]*time.Timer

	queue chan *PendingCommand

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewController creates a controller for one device. Start must be
// called before dispatching intents.
func NewController(opts Options) (*Controller, error) {
	if opts.Profile == nil || opts.Client == nil {
		return nil, fmt.Errorf("%w: profile and client are required", ErrInvalidOptions)
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}
	if opts.ConfirmWindow <= 0 {
		opts.ConfirmWindow = 10 * time.Second
	}
	if opts.CommandRetries <= 0 {
		opts.CommandRetries = 3
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 500 * time.Millisecond
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 8
	}

	return &Controller{
		deviceID:        opts.Profile.DeviceID(),
		prof:            opts.Profile,
		client:          opts.Client,
		logger:          opts.Logger,
		onStateChanged:  opts.OnStateChanged,
		onReports:       opts.OnReports,
		onCommandFailed: opts.OnCommandFailed,
		pollInterval:    opts.PollInterval,
		confirmWindow:   opts.ConfirmWindow,
		retries:         opts.CommandRetries,
		backoff:         opts.RetryBackoff,
		state:           player.NewState(opts.Profile),
		pending:         make(map[string]*PendingCommand),
		byField:         make(map[player.FieldName]string),
		revert:          make(map[string]player.Field),
		timers:          make(map[string]*time.Timer),
		queue:           make(chan *PendingCommand, opts.QueueSize),
		done:            make(chan struct{}),
	}, nil
}

// Start performs an initial status fetch and launches the poll loop,
// the push listener and the command worker.
func (c *Controller) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	if err := c.poll(c.ctx); err != nil {
		c.logger.Warn("initial status fetch failed",
			"device_id", c.deviceID, "error", err)
	}

	c.wg.Add(2)
	go c.pollLoop()
	go c.commandWorker()

	c.wg.Add(1)
	go c.pushLoop()

	c.logger.Info("sync controller started",
		"device_id", c.deviceID,
		"poll_interval", c.pollInterval,
		"confirm_window", c.confirmWindow)
	return nil
}

// Stop cancels all loops and waits for them to exit. Safe to call more
// than once.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		close(c.done)

		c.mu.Lock()
		for id, t := range c.timers {
			t.Stop()
			delete(c.timers, id)
		}
		c.mu.Unlock()

		c.wg.Wait()
		c.logger.Info("sync controller stopped", "device_id", c.deviceID)
	})
}

// State returns a snapshot of the current device state.
func (c *Controller) State() player.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Profile returns the device profile the controller was built with.
func (c *Controller) Profile() *profile.Profile {
	return c.prof
}

// Pending returns the live pending commands, for diagnostics.
func (c *Controller) Pending() []PendingCommand {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]PendingCommand, 0, len(c.pending))
	for _, p := range c.pending {
		out = append(out, *p)
	}
	return out
}

// Dispatch translates an intent against the current state and profile,
// applies optimistic updates, and enqueues the resulting commands.
// Translation failures reject the intent before anything touches the
// transport. A newer intent on a field with an unconfirmed command
// supersedes the older command.
func (c *Controller) Dispatch(in intent.Intent) error {
	select {
	case <-c.done:
		return ErrStopped
	default:
	}

	c.mu.Lock()
	cmds, err := intent.Translate(in, c.prof, c.state)
	if err != nil {
		c.mu.Unlock()
		return err
	}

	now := time.Now()
	queued := make([]*PendingCommand, 0, len(cmds))
	for _, ci := range cmds {
		p := &PendingCommand{
			ID:      uuid.New().String(),
			Command: ci.Command,
			Field:   ci.Field,
			Desired: ci.Desired,
			SentAt:  now,
			State:   PendingSent,
		}

		if p.Field != "" {
			// The revert target is the value the field held
			// before any optimistic write, never another
			// optimistic value: a superseded command hands its
			// own target down the chain.
			prev, carried := c.supersedeLocked(p.Field)
			if !carried {
				prev = c.state.Field(p.Field)
			}
			c.revert[p.ID] = prev

			c.state = c.state.WithField(p.Field,
				player.OptimisticField(ci.Desired, p.ID, now))
			c.byField[p.Field] = p.ID
		}

		c.pending[p.ID] = p
		queued = append(queued, p)
	}
	snapshot := c.state
	c.mu.Unlock()

	c.emitState(snapshot)

	for _, p := range queued {
		select {
		case c.queue <- p:
		case <-c.done:
			return ErrStopped
		}
	}
	return nil
}

// supersedeLocked retires the live pending command on a field and
// returns its revert target so the replacing command inherits it. The
// superseded command's eventual device response still flows through
// reconciliation, where timestamp ordering decides whether it lands.
func (c *Controller) supersedeLocked(field player.FieldName) (player.Field, bool) {
	oldID, ok := c.byField[field]
	if !ok {
		return player.Field{}, false
	}
	old, ok := c.pending[oldID]
	if !ok {
		return player.Field{}, false
	}
	old.State = PendingExpired
	delete(c.pending, oldID)
	delete(c.byField, field)
	if t, ok := c.timers[oldID]; ok {
		t.Stop()
		delete(c.timers, oldID)
	}
	prev, carried := c.revert[oldID]
	delete(c.revert, oldID)
	c.logger.Debug("pending command superseded",
		"device_id", c.deviceID, "command_id", oldID, "field", field)
	return prev, carried
}

// commandWorker drains the queue, sending one command at a time.
func (c *Controller) commandWorker() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case p := <-c.queue:
			c.send(p)
		}
	}
}

// send attempts one command with bounded exponential backoff. On
// transport success the command is acknowledged and an expiry timer is
// armed; acknowledgement alone never confirms the field. On exhausted
// retries the command fails and the optimistic field reverts.
func (c *Controller) send(p *PendingCommand) {
	var lastErr error
	delay := c.backoff

	for attempt := 1; attempt <= c.retries; attempt++ {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		c.mu.Lock()
		live := c.pending[p.ID] == p
		p.Retries = attempt
		c.mu.Unlock()
		if !live {
			return
		}

		err := c.client.SendCommand(c.ctx, c.deviceID, p.Command)
		if err == nil {
			c.acknowledge(p)
			return
		}
		lastErr = err
		c.logger.Warn("command send failed",
			"device_id", c.deviceID,
			"command_id", p.ID,
			"command", p.Command.Command,
			"attempt", attempt,
			"error", err)

		if attempt < c.retries {
			select {
			case <-time.After(delay):
			case <-c.ctx.Done():
				return
			}
			delay *= 2
		}
	}

	c.fail(p, fmt.Errorf("%w: %v", ErrCommandFailed, lastErr))
}

// acknowledge marks a command accepted by the transport and arms its
// confirmation window.
func (c *Controller) acknowledge(p *PendingCommand) {
	c.mu.Lock()
	if c.pending[p.ID] != p {
		c.mu.Unlock()
		return
	}
	p.State = PendingAcknowledged

	// Pure actions (track skips) have no observable field to confirm
	// against; transport acceptance resolves them outright.
	if p.Field == "" {
		c.retireLocked(p, false)
		c.mu.Unlock()
		c.logger.Debug("command resolved on acknowledgement",
			"device_id", c.deviceID, "command_id", p.ID, "command", p.Command.Command)
		return
	}

	id := p.ID
	c.timers[id] = time.AfterFunc(c.confirmWindow, func() {
		c.expire(id)
	})
	c.mu.Unlock()

	c.logger.Debug("command acknowledged",
		"device_id", c.deviceID, "command_id", p.ID, "command", p.Command.Command)
}

// fail terminates a command after exhausted retries and reverts its
// optimistic field to the value held before the command.
func (c *Controller) fail(p *PendingCommand, err error) {
	c.mu.Lock()
	if c.pending[p.ID] != p {
		c.mu.Unlock()
		return
	}
	p.State = PendingFailed
	final := *p
	snapshot, changed := c.retireLocked(p, true)
	c.mu.Unlock()

	c.logger.Error("command failed after retries",
		"device_id", c.deviceID,
		"command_id", final.ID,
		"command", final.Command.Command,
		"attempts", final.Retries,
		"error", err)

	if changed {
		c.emitState(snapshot)
	}
	if c.onCommandFailed != nil {
		c.onCommandFailed(final, err)
	}
}

// expire terminates a command whose confirmation window elapsed without
// a matching device report.
func (c *Controller) expire(id string) {
	c.mu.Lock()
	p, ok := c.pending[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	p.State = PendingExpired
	final := *p
	snapshot, changed := c.retireLocked(p, true)
	c.mu.Unlock()

	c.logger.Warn("command confirmation window expired",
		"device_id", c.deviceID,
		"command_id", id,
		"command", final.Command.Command,
		"field", final.Field)

	if changed {
		c.emitState(snapshot)
	}
	if c.onCommandFailed != nil {
		c.onCommandFailed(final, fmt.Errorf("%w: no confirming report within %s",
			ErrCommandFailed, c.confirmWindow))
	}
}

// retireLocked removes a command from the live set. When revertField is
// set and the field still carries this command's optimistic value, the
// field rolls back to its pre-command value. Returns the state snapshot
// and whether it changed.
func (c *Controller) retireLocked(p *PendingCommand, revertField bool) (player.State, bool) {
	delete(c.pending, p.ID)
	if c.byField[p.Field] == p.ID {
		delete(c.byField, p.Field)
	}
	if t, ok := c.timers[p.ID]; ok {
		t.Stop()
		delete(c.timers, p.ID)
	}

	prev, hadRevert := c.revert[p.ID]
	delete(c.revert, p.ID)

	if !revertField || !hadRevert || p.Field == "" {
		return c.state, false
	}
	cur := c.state.Field(p.Field)
	if cur.Freshness != player.Optimistic || cur.CommandID != p.ID {
		return c.state, false
	}
	c.state = c.state.WithField(p.Field, prev)
	return c.state, true
}

// pollLoop fetches full status on the configured interval.
func (c *Controller) pollLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.poll(c.ctx); err != nil {
				c.logger.Warn("status poll failed",
					"device_id", c.deviceID, "error", err)
			}
		}
	}
}

func (c *Controller) poll(ctx context.Context) error {
	reports, err := c.client.GetStatus(ctx, c.deviceID)
	if err != nil {
		return err
	}
	c.Apply(reports)
	return nil
}

// pushLoop subscribes for push reports, falling back silently to
// poll-only when the transport does not support push. A closed push
// channel triggers resubscription after a poll interval.
func (c *Controller) pushLoop() {
	defer c.wg.Done()
	for {
		ch, err := c.client.Subscribe(c.ctx, c.deviceID)
		if err != nil {
			if errors.Is(err, capability.ErrPushUnsupported) {
				c.logger.Info("push not supported, poll only",
					"device_id", c.deviceID)
				return
			}
			c.logger.Warn("push subscribe failed",
				"device_id", c.deviceID, "error", err)
			select {
			case <-c.done:
				return
			case <-time.After(c.pollInterval):
				continue
			}
		}

		if !c.consumePush(ch) {
			return
		}
		c.logger.Warn("push channel closed, resubscribing",
			"device_id", c.deviceID)
		select {
		case <-c.done:
			return
		case <-time.After(c.pollInterval):
		}
	}
}

// consumePush drains one push subscription. Returns true when the
// channel closed and a resubscribe should be attempted, false on
// shutdown.
func (c *Controller) consumePush(ch <-chan capability.AttributeReport) bool {
	for {
		select {
		case <-c.done:
			return false
		case r, ok := <-ch:
			if !ok {
				return true
			}
			c.Apply([]capability.AttributeReport{r})
		}
	}
}

// Apply reconciles a batch of attribute reports into the device state,
// resolves pending commands confirmed by the batch, and emits a single
// state-changed notification when anything moved.
func (c *Controller) Apply(reports []capability.AttributeReport) {
	if len(reports) == 0 {
		return
	}

	c.mu.Lock()
	prev := c.state
	next, diags := player.Merge(c.state, reports)
	c.state = next

	for _, d := range diags {
		c.logger.Warn("report discarded",
			"device_id", c.deviceID,
			"capability", d.Report.Capability,
			"attribute", d.Report.Attribute,
			"reason", d.Reason)
	}

	for _, p := range c.pending {
		if p.confirms(c.state.Field(p.Field)) {
			c.logger.Debug("command confirmed",
				"device_id", c.deviceID,
				"command_id", p.ID,
				"field", p.Field)
			c.retireLocked(p, false)
		}
	}

	changed := !reflect.DeepEqual(prev, c.state)
	snapshot := c.state
	c.mu.Unlock()

	if c.onReports != nil {
		c.onReports(reports)
	}
	if changed {
		c.emitState(snapshot)
	}
}

func (c *Controller) emitState(s player.State) {
	if c.onStateChanged != nil {
		c.onStateChanged(s)
	}
}
