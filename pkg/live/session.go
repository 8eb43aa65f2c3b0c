package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxa-ai/voxa/pkg/audio"
	"github.com/voxa-ai/voxa/pkg/core"
	"github.com/voxa-ai/voxa/pkg/live/protocol"
)

// SessionState is the controller's connection lifecycle state.
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionConnecting
	SessionActive
	SessionClosing
	SessionErrored
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionConnecting:
		return "connecting"
	case SessionActive:
		return "active"
	case SessionClosing:
		return "closing"
	case SessionErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Callbacks are the controller's observer hooks. All fields are optional.
// Callbacks fire from the controller's internal goroutines; implementations
// must not call back into the controller synchronously except Disconnect,
// which is safe from any goroutine.
type Callbacks struct {
	OnStateChange   func(SessionState)
	OnVoiceState    func(VoiceState)
	OnTranscript    func(speaker, text string, final bool)
	OnTurnComplete  func()
	OnUsageExceeded func()
	OnConfigStale   func()
	OnError         func(error)
}

// ControllerConfig carries the controller's required collaborators.
type ControllerConfig struct {
	Transport  Transport
	Scheduler  *Scheduler
	Capture    *CapturePipeline
	Dispatcher *Dispatcher
	Usage      *UsageGovernor
	// Config supplies the current persona/tool inputs. It is invoked at
	// connect time; the built snapshot stays fixed for the connection's
	// lifetime.
	Config    func() ConfigInputs
	Callbacks Callbacks
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithControllerLogger sets the controller's logger.
func WithControllerLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithControllerMetrics attaches instrumentation.
func WithControllerMetrics(m *Metrics) ControllerOption {
	return func(c *Controller) { c.metrics = m }
}

// WithBackoff tunes the connect retry policy: the initial delay (doubled on
// each failed attempt) and the total attempt cap.
func WithBackoff(base time.Duration, maxAttempts int) ControllerOption {
	return func(c *Controller) {
		if base > 0 {
			c.backoffBase = base
		}
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
	}
}

// WithUsageTickInterval overrides how often connected time is billed.
func WithUsageTickInterval(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.tickInterval = d
		}
	}
}

// session is one established connection's private state. A fresh session is
// created per successful dial; stale read loops compare against the current
// pointer so a late exit cannot tear down a newer connection.
type session struct {
	id     string
	conn   Conn
	cancel context.CancelFunc
}

// Controller drives one live voice session end to end: connect with backoff,
// stream microphone frames up, schedule assistant audio down, dispatch tool
// calls, bill usage, and tear everything down on disconnect. At most one
// socket and one microphone acquisition exist at any time.
type Controller struct {
	transport  Transport
	scheduler  *Scheduler
	capture    *CapturePipeline
	dispatcher *Dispatcher
	usage      *UsageGovernor
	configFn   func() ConfigInputs
	callbacks  Callbacks
	logger     *slog.Logger
	metrics    *Metrics

	backoffBase  time.Duration
	maxAttempts  int
	tickInterval time.Duration

	detector StalenessDetector

	mu      sync.Mutex
	state   SessionState
	current *session
}

// NewController wires a controller from its collaborators.
func NewController(cfg ControllerConfig, opts ...ControllerOption) (*Controller, error) {
	switch {
	case cfg.Transport == nil:
		return nil, errors.New("live: controller requires a transport")
	case cfg.Scheduler == nil:
		return nil, errors.New("live: controller requires a playback scheduler")
	case cfg.Capture == nil:
		return nil, errors.New("live: controller requires a capture pipeline")
	case cfg.Dispatcher == nil:
		return nil, errors.New("live: controller requires a tool dispatcher")
	case cfg.Config == nil:
		return nil, errors.New("live: controller requires a config source")
	}

	c := &Controller{
		transport:   cfg.Transport,
		scheduler:   cfg.Scheduler,
		capture:     cfg.Capture,
		dispatcher:  cfg.Dispatcher,
		usage:       cfg.Usage,
		configFn:    cfg.Config,
		callbacks:   cfg.Callbacks,
		logger:       slog.Default(),
		backoffBase:  time.Second,
		maxAttempts:  5,
		tickInterval: UsageTickInterval,
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.Callbacks.OnVoiceState != nil {
		c.scheduler.SetStateListener(cfg.Callbacks.OnVoiceState)
	}
	return c, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the id of the current connection, if any.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return ""
	}
	return c.current.id
}

func (c *Controller) setState(s SessionState) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()
	if c.callbacks.OnStateChange != nil {
		c.callbacks.OnStateChange(s)
	}
}

func (c *Controller) surface(err error) {
	if err == nil {
		return
	}
	if c.callbacks.OnError != nil {
		c.callbacks.OnError(err)
	}
}

// Connect establishes a live session. If a session is already up it is torn
// down completely first, so the one-socket/one-mic invariant holds across
// repeated calls. The config snapshot is built once, before the first dial
// attempt, and stays fixed across retries.
//
// Retries use capped exponential backoff. Credential, safety, and quota
// failures abort immediately; transport-level and retryable service errors
// back off and try again up to the attempt cap.
func (c *Controller) Connect(ctx context.Context) error {
	if err := c.Disconnect(); err != nil {
		c.logger.Warn("teardown before reconnect failed", "error", err)
	}

	if c.usage != nil {
		if err := c.usage.CheckQuota(ctx); err != nil {
			c.setState(SessionErrored)
			return err
		}
	}

	c.setState(SessionConnecting)
	cfg := BuildSessionConfig(c.configFn())
	setup := cfg.Setup()

	var conn Conn
	delay := c.backoffBase
	for attempt := 1; ; attempt++ {
		var err error
		conn, err = c.transport.Dial(ctx, setup)
		if err == nil {
			c.metrics.connectAttempt("ok")
			break
		}
		c.metrics.connectAttempt("error")

		var ce *core.Error
		if errors.As(err, &ce) && !ce.IsRetryable() {
			c.logger.Error("connect failed, not retryable", "error", err, "attempt", attempt)
			c.setState(SessionErrored)
			return err
		}
		if attempt >= c.maxAttempts {
			c.logger.Error("connect failed, attempts exhausted", "error", err, "attempts", attempt)
			c.setState(SessionErrored)
			return fmt.Errorf("connect after %d attempts: %w", attempt, err)
		}

		c.logger.Warn("connect failed, backing off", "error", err, "attempt", attempt, "delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			c.setState(SessionErrored)
			return ctx.Err()
		}
		delay *= 2
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	sess := &session{
		id:     uuid.NewString(),
		conn:   conn,
		cancel: cancel,
	}

	c.mu.Lock()
	c.current = sess
	c.mu.Unlock()
	c.detector.Capture(cfg)
	c.setState(SessionActive)
	c.metrics.sessionStarted()
	c.logger.Info("session active", "session_id", sess.id, "voice", cfg.Voice, "tools", len(cfg.Tools))

	go c.readLoop(loopCtx, sess)
	if c.usage != nil {
		go c.usageLoop(loopCtx)
	}

	// A denied microphone leaves the session up for playback and tool calls;
	// the caller gets the specific permission error to show the user.
	if err := c.capture.Start(c.captureActive, c.sendFrame); err != nil {
		c.logger.Error("microphone start failed", "session_id", sess.id, "error", err)
		c.surface(err)
		return err
	}
	return nil
}

func (c *Controller) captureActive() bool {
	return c.State() == SessionActive
}

func (c *Controller) sendFrame(chunk audio.Chunk) error {
	c.mu.Lock()
	sess := c.current
	c.mu.Unlock()
	if sess == nil {
		return errors.New("no active session")
	}
	if err := sess.conn.SendAudio(chunk); err != nil {
		return err
	}
	c.metrics.frameSent()
	return nil
}

// Disconnect tears the session down: microphone released, socket closed,
// playback silenced, config snapshot dropped. Idempotent; disconnecting an
// idle controller is a no-op. Also resets an errored controller to idle.
func (c *Controller) Disconnect() error {
	c.mu.Lock()
	sess := c.current
	c.current = nil
	wasIdle := c.state == SessionIdle
	c.mu.Unlock()

	if sess == nil {
		if !wasIdle {
			c.setState(SessionIdle)
		}
		return nil
	}

	c.setState(SessionClosing)
	sess.cancel()

	var errs []error
	if err := c.capture.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop capture: %w", err))
	}
	if err := sess.conn.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close connection: %w", err))
	}
	c.scheduler.Reset()
	c.detector.Clear()
	c.metrics.sessionEnded()
	c.setState(SessionIdle)
	c.logger.Info("session closed", "session_id", sess.id)
	return errors.Join(errs...)
}

// connLost handles the read loop ending. Only the current session may tear
// the controller down; a stale loop exiting after a reconnect is ignored.
func (c *Controller) connLost(sess *session, err error, terminal bool) {
	c.mu.Lock()
	stale := c.current != sess
	c.mu.Unlock()
	if stale {
		return
	}

	if err != nil {
		c.surface(err)
	}
	if derr := c.Disconnect(); derr != nil {
		c.logger.Warn("teardown after connection loss", "error", derr)
	}
	if terminal {
		c.setState(SessionErrored)
	}
}

// readLoop serially processes inbound events, preserving the server's
// ordering guarantees: an interruption is applied before any audio from the
// following turn is scheduled, and a tool-call batch is fully answered
// before the next inbound event is handled.
func (c *Controller) readLoop(ctx context.Context, sess *session) {
	for {
		event, err := sess.conn.Receive()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				c.logger.Info("connection closed by service", "session_id", sess.id)
				c.connLost(sess, nil, false)
				return
			}
			c.logger.Error("receive failed", "session_id", sess.id, "error", err)
			c.connLost(sess, err, false)
			return
		}

		switch ev := event.(type) {
		case protocol.ServerAudio:
			samples, err := audio.DecodeBase64(ev.Data)
			if err != nil {
				// One malformed chunk is dropped; playback continues with
				// the next chunk rather than killing the session.
				c.logger.Warn("undecodable audio chunk dropped", "session_id", sess.id, "error", err)
				continue
			}
			c.scheduler.Enqueue(samples)
			c.metrics.chunkPlayed()

		case protocol.ServerTranscript:
			if c.callbacks.OnTranscript != nil {
				c.callbacks.OnTranscript(ev.Speaker, ev.Text, ev.Final)
			}

		case protocol.ServerToolCall:
			responses := c.dispatcher.Dispatch(ctx, ev.Calls)
			for i, resp := range responses {
				outcome := "ok"
				if _, failed := resp.Response["error"]; failed {
					outcome = "error"
				}
				c.metrics.toolCall(ev.Calls[i].Name, outcome)
			}
			if err := sess.conn.SendToolResponses(responses); err != nil {
				c.logger.Error("tool responses not delivered", "session_id", sess.id, "error", err)
			}

		case protocol.ServerInterrupted:
			c.scheduler.Interrupt()
			c.metrics.interrupted()

		case protocol.ServerTurnComplete:
			if c.callbacks.OnTurnComplete != nil {
				c.callbacks.OnTurnComplete()
			}

		case protocol.ServerError:
			cerr := ev.Err()
			c.surface(cerr)
			// Credential failures end the session; everything else is a
			// per-turn condition the conversation survives.
			if cerr.Type == core.ErrAuthentication {
				c.connLost(sess, nil, true)
				return
			}

		case protocol.ServerReady:
			// Duplicate ready after the dial handshake; harmless.

		default:
			c.logger.Debug("unhandled server event", "session_id", sess.id, "type", fmt.Sprintf("%T", event))
		}
	}
}

// usageLoop bills connected time in fixed slices and forces a disconnect
// the moment the plan quota is exhausted.
func (c *Controller) usageLoop(ctx context.Context) {
	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()
	seconds := int(c.tickInterval / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			exceeded := c.usage.Tick(ctx, seconds)
			c.metrics.usageBilled(seconds)
			if !exceeded {
				continue
			}
			c.logger.Info("usage quota exhausted, closing session", "plan", c.usage.Plan().Name)
			if c.callbacks.OnUsageExceeded != nil {
				c.callbacks.OnUsageExceeded()
			}
			if err := c.Disconnect(); err != nil {
				c.logger.Warn("teardown after quota exhaustion", "error", err)
			}
			return
		}
	}
}

// NotifyConfigChanged compares the current inputs against the live snapshot
// and reports whether the running session is stale. Stale sessions keep
// their connect-time config until ApplyConfigUpdate reconnects.
func (c *Controller) NotifyConfigChanged() bool {
	candidate := BuildSessionConfig(c.configFn())
	if !c.detector.Stale(candidate) {
		return false
	}
	if c.callbacks.OnConfigStale != nil {
		c.callbacks.OnConfigStale()
	}
	return true
}

// ApplyConfigUpdate reconnects with a freshly built config. There is no
// in-place reconfiguration of a live session.
func (c *Controller) ApplyConfigUpdate(ctx context.Context) error {
	if err := c.Disconnect(); err != nil {
		c.logger.Warn("teardown before config update", "error", err)
	}
	return c.Connect(ctx)
}
