// Package serverdate provides a clock that follows a remote, authoritative
// clock. Offsets are measured through a probe transport and applied
// gradually to avoid visible jumps.
package serverdate

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"example.com/server-time/base/timebase"

	"example.com/server-time/core/client"
	"example.com/server-time/core/clocksync"
	"example.com/server-time/core/config"
	"example.com/server-time/core/offset"
)

type Clock struct {
	log     *zap.Logger
	lclk    timebase.LocalClock
	cfg     *config.Value
	tracker *clocksync.Tracker
	ctrl    *clocksync.Controller
	amort   *clocksync.Amortizer
	tamper  *clocksync.TamperDetector

	mu      sync.Mutex
	active  bool
	reconf  chan struct{}
	running bool
}

// New creates a clock that starts from seed, usually the result of Seed. Use
// offset.Unbounded(0) if nothing is known about the remote clock yet.
func New(log *zap.Logger, lclk timebase.LocalClock, transport client.Transport,
	cfg config.Config, seed offset.Offset) (*Clock, error) {
	if log == nil {
		log = zap.NewNop()
	}
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	c := &Clock{
		log:    log,
		lclk:   lclk,
		cfg:    config.NewValue(cfg),
		active: true,
		reconf: make(chan struct{}, 1),
	}
	c.tracker = clocksync.NewTracker(log, lclk, c.cfg, seed)
	c.ctrl = clocksync.NewController(log, c.cfg, c.tracker,
		&clocksync.Sampler{Log: log, Transport: transport})
	c.amort = clocksync.NewAmortizer(log, c.cfg, c.tracker)
	c.tamper = clocksync.NewTamperDetector(log, lclk, c.cfg, func() {
		c.Synchronize(clocksync.SyncOptions{})
	})
	c.tamper.Active = c.isActive
	return c, nil
}

// Run synchronizes once and then keeps the clock converging and periodically
// resynchronized until ctx is done.
func (c *Clock) Run(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		c.log.Error("clock already running")
		return
	}
	c.running = true
	c.mu.Unlock()

	cfg := c.cfg.Load()
	tick := time.NewTicker(cfg.TickInterval)
	defer tick.Stop()
	resync := time.NewTicker(cfg.SynchronizationIntervalDelay)
	defer resync.Stop()

	c.tamper.Tick()
	c.Synchronize(clocksync.SyncOptions{})
	for {
		select {
		case <-ctx.Done():
			c.ctrl.Wait()
			return
		case <-tick.C:
			c.tamper.Tick()
			c.amort.Tick()
		case <-resync.C:
			c.Synchronize(clocksync.SyncOptions{})
		case <-c.reconf:
			cfg := c.cfg.Load()
			tick.Reset(cfg.TickInterval)
			resync.Reset(cfg.SynchronizationIntervalDelay)
			c.log.Debug("timers reset",
				zap.Duration("tick", cfg.TickInterval),
				zap.Duration("resync", cfg.SynchronizationIntervalDelay),
			)
		}
	}
}

// Now returns the estimate of the remote clock's current time.
func (c *Clock) Now() time.Time {
	return c.tracker.Now()
}

func (c *Clock) NowMillis() int64 {
	return c.Now().UnixMilli()
}

// Precision returns the uncertainty of Now. ok is false as long as the
// precision of the target offset is unknown.
func (c *Clock) Precision() (p time.Duration, ok bool) {
	return c.tracker.Precision()
}

func (c *Clock) Target() offset.Offset {
	return c.tracker.Target()
}

func (c *Clock) State() clocksync.State {
	return c.ctrl.State()
}

// Synchronize starts a synchronization session; see
// clocksync.Controller.Synchronize.
func (c *Clock) Synchronize(opts clocksync.SyncOptions) bool {
	return c.ctrl.Synchronize(opts)
}

// Wait blocks until no synchronization session is running.
func (c *Clock) Wait() {
	c.ctrl.Wait()
}

func (c *Clock) OnSyncComplete(fn clocksync.Listener) clocksync.ListenerID {
	return c.ctrl.OnSyncComplete(fn)
}

func (c *Clock) OffSyncComplete(ids ...clocksync.ListenerID) {
	c.ctrl.OffSyncComplete(ids...)
}

// Config returns a copy of the configuration in effect.
func (c *Clock) Config() config.Config {
	return c.cfg.Load()
}

// Configure merges o into the configuration. Timers of a running clock are
// rebuilt when the synchronization interval or the tick interval changed.
func (c *Clock) Configure(o config.Overrides) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.cfg.Load()
	next, intervalChanged, err := cur.Apply(o)
	if err != nil {
		return err
	}
	c.cfg.Store(next)
	c.log.Debug("configuration updated", zap.Any("config", next))
	if intervalChanged || next.TickInterval != cur.TickInterval {
		select {
		case c.reconf <- struct{}{}:
		default:
		}
	}
	return nil
}

// ConfigureTOML is like Configure with overrides given as TOML. Unknown keys
// are ignored.
func (c *Clock) ConfigureTOML(raw []byte) error {
	o, err := config.DecodeOverrides(raw)
	if err != nil {
		return err
	}
	return c.Configure(o)
}

func (c *Clock) isActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// SetActive records whether the observing context is active. A transition
// from inactive to active triggers Resume.
func (c *Clock) SetActive(active bool) {
	c.mu.Lock()
	was := c.active
	c.active = active
	c.mu.Unlock()
	if active && !was {
		c.Resume()
	}
}

// Resume takes a few samples and adopts them only if they improve on the
// current target. It does nothing if SamplesOnResume is 0.
func (c *Clock) Resume() bool {
	n := c.cfg.Load().SamplesOnResume
	if n == 0 {
		return false
	}
	c.log.Debug("resumed, resynchronizing", zap.Int("samples", n))
	return c.Synchronize(clocksync.SyncOptions{
		SampleCount: clocksync.Samples(n),
		Update:      true,
	})
}
