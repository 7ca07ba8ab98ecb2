package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mattjoyce/lvsctl/internal/log"
	"github.com/mattjoyce/lvsctl/internal/protocol"
	"github.com/mattjoyce/lvsctl/internal/transport"
)

const (
	// DefaultWarmup gives the engine time to bring up its own IPC reader.
	DefaultWarmup = 500 * time.Millisecond

	// DefaultJoinTimeout bounds how long Close waits for the listener.
	DefaultJoinTimeout = 5 * time.Second

	// DefaultTerminationGrace is the time we wait after SIGTERM before sending SIGKILL.
	DefaultTerminationGrace = 5 * time.Second
)

var (
	// ErrInvalidArgument is returned synchronously for caller misuse.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrClosed is returned when the engine can no longer be written to.
	ErrClosed = transport.ErrClosed

	// ErrWriteFailed is returned when a write to a live engine fails.
	ErrWriteFailed = transport.ErrWriteFailed

	// ErrNotRunning is returned for commands issued outside the running phase.
	// It matches ErrClosed.
	ErrNotRunning = fmt.Errorf("client not running: %w", transport.ErrClosed)
)

// Transport is the line channel to the engine. *transport.Process implements it.
type Transport interface {
	WriteLine(line []byte) error
	ReadLine(ctx context.Context) ([]byte, error)
	IsAlive() bool
	Done() <-chan struct{}
	CloseStreams() error
	Terminate(grace time.Duration) error
}

// Recorder observes every line exchanged with the engine. msg is nil for
// inbound lines that failed to decode. Implementations must not block.
type Recorder interface {
	Record(dir protocol.Direction, msg protocol.Message, line []byte)
}

// Options configures Start.
type Options struct {
	Engine           transport.Options
	Warmup           time.Duration
	JoinTimeout      time.Duration
	TerminationGrace time.Duration
	Recorder         Recorder
	Logger           *slog.Logger

	// spawn replaces transport.Spawn in tests.
	spawn func(transport.Options) (Transport, error)
}

func (o Options) withDefaults() Options {
	if o.Warmup < 0 {
		o.Warmup = 0
	} else if o.Warmup == 0 {
		o.Warmup = DefaultWarmup
	}
	if o.JoinTimeout <= 0 {
		o.JoinTimeout = DefaultJoinTimeout
	}
	if o.TerminationGrace <= 0 {
		o.TerminationGrace = DefaultTerminationGrace
	}
	if o.Logger == nil {
		o.Logger = log.WithComponent("client")
	}
	if o.Engine.Logger == nil {
		o.Engine.Logger = o.Logger.With("component", "engine")
	}
	if o.spawn == nil {
		o.spawn = func(opts transport.Options) (Transport, error) {
			return transport.Spawn(opts)
		}
	}
	return o
}

// Stats are running counters for the client's traffic.
type Stats struct {
	Received     uint64 `json:"received"`
	Dispatched   uint64 `json:"dispatched"`
	DecodeErrors uint64 `json:"decodeErrors"`
	Sent         uint64 `json:"sent"`
	SendErrors   uint64 `json:"sendErrors"`
}

type counters struct {
	received     atomic.Uint64
	dispatched   atomic.Uint64
	decodeErrors atomic.Uint64
	sent         atomic.Uint64
	sendErrors   atomic.Uint64
}

// Client drives one engine process. Create it with Start and release it with Close.
type Client struct {
	opts      Options
	logger    *slog.Logger
	transport Transport
	store     *store
	subs      *registry
	stats     counters

	cancel       context.CancelFunc
	listenerDone chan struct{}
	listenerMu   sync.Mutex
	listenerErr  error

	closeOnce sync.Once
	closeErr  error
}

// Start spawns the engine, arms the listener and waits out the warm-up delay.
// On any failure the engine is shut down before the error is returned.
func Start(ctx context.Context, opts Options) (*Client, error) {
	opts = opts.withDefaults()

	c := &Client{
		opts:   opts,
		logger: opts.Logger,
		store:  newStore(),
		subs:   &registry{logger: opts.Logger},
	}
	c.store.setPhase(PhaseStarting)

	tr, err := opts.spawn(opts.Engine)
	if err != nil {
		c.store.setPhase(PhaseClosed)
		return nil, fmt.Errorf("start client: %w", err)
	}
	c.transport = tr

	listenCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.listenerDone = make(chan struct{})
	go c.listen(listenCtx)

	if err := c.warmup(ctx); err != nil {
		if cerr := c.Close(); cerr != nil {
			c.logger.Warn("cleanup after failed start", "error", cerr)
		}
		return nil, fmt.Errorf("start client: %w", err)
	}

	c.store.setPhase(PhaseRunning)
	c.logger.Info("client running", "warmup", opts.Warmup)
	return c, nil
}

// warmup is a fixed delay, not a handshake: the engine starts reading stdin
// asynchronously and has no readiness message.
func (c *Client) warmup(ctx context.Context) error {
	if c.opts.Warmup == 0 {
		return nil
	}

	timer := time.NewTimer(c.opts.Warmup)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.transport.Done():
		return errors.New("engine exited during startup")
	}
}

// Close shuts the client down: stop the listener, close the pipes, terminate
// the engine if needed. It is idempotent and safe on a nil client.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		c.closeErr = c.shutdown()
	})
	return c.closeErr
}

func (c *Client) shutdown() error {
	c.store.setPhase(PhaseShuttingDown)
	defer c.store.setPhase(PhaseClosed)

	c.logger.Info("client shutting down")

	if c.cancel != nil {
		c.cancel()
	}
	if c.listenerDone != nil {
		join := time.NewTimer(c.opts.JoinTimeout)
		select {
		case <-c.listenerDone:
		case <-join.C:
			c.logger.Warn("listener did not stop in time; continuing shutdown", "timeout", c.opts.JoinTimeout)
		}
		join.Stop()
	}

	if c.transport == nil {
		return nil
	}

	var errs []error
	if err := c.transport.CloseStreams(); err != nil {
		errs = append(errs, err)
	}
	if c.transport.IsAlive() {
		if err := c.transport.Terminate(c.opts.TerminationGrace); err != nil {
			errs = append(errs, err)
		}
	}

	c.logger.Info("client closed")
	return errors.Join(errs...)
}

// State returns a consistent snapshot of the client state.
func (c *Client) State() State {
	return c.store.snapshot()
}

// Phase returns the current lifecycle phase.
func (c *Client) Phase() Phase {
	return c.store.phase()
}

// Subscribe registers fn for every dispatched inbound message and returns
// a function that removes it. Handlers run in registration order.
func (c *Client) Subscribe(fn Handler) (unsubscribe func()) {
	return c.subs.add(fn)
}

// Done is closed when the listener stops.
func (c *Client) Done() <-chan struct{} {
	return c.listenerDone
}

// EngineAlive reports whether the engine process is still running.
func (c *Client) EngineAlive() bool {
	return c.transport != nil && c.transport.IsAlive()
}

// Wait blocks until the engine exits or ctx is done.
func (c *Client) Wait(ctx context.Context) error {
	select {
	case <-c.transport.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a copy of the traffic counters.
func (c *Client) Stats() Stats {
	return Stats{
		Received:     c.stats.received.Load(),
		Dispatched:   c.stats.dispatched.Load(),
		DecodeErrors: c.stats.decodeErrors.Load(),
		Sent:         c.stats.sent.Load(),
		SendErrors:   c.stats.sendErrors.Load(),
	}
}

func (c *Client) record(dir protocol.Direction, msg protocol.Message, line []byte) {
	if c.opts.Recorder == nil {
		return
	}
	c.opts.Recorder.Record(dir, msg, line)
}
