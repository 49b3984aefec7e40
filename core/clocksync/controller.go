package clocksync

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"example.com/server-time/core/config"
	"example.com/server-time/core/offset"
)

type State int

const (
	Idle State = iota
	Sampling
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sampling:
		return "sampling"
	default:
		return "unknown"
	}
}

// SyncOptions controls a single synchronization session. Zero values are
// replaced by the current configuration.
type SyncOptions struct {
	// Callback is notified after all registered listeners.
	Callback Listener
	// SampleCount is the number of probes; nil means the configured
	// default.
	SampleCount *int
	Timeout     time.Duration
	// Force starts a session even if another one is running.
	Force bool
	// Update keeps the current target unless the session's best offset is
	// strictly more precise.
	Update bool
}

func Samples(n int) *int {
	return &n
}

type session struct {
	id       uint64
	opts     SyncOptions
	cancel   context.CancelFunc
	timer    *time.Timer
	finished bool
}

// Controller runs synchronization sessions against the tracker.
type Controller struct {
	log       *zap.Logger
	cfg       *config.Value
	tracker   *Tracker
	sampler   *Sampler
	listeners *Registry

	mu     sync.Mutex
	lastID uint64
	active int
	wg     sync.WaitGroup
}

func NewController(log *zap.Logger, cfg *config.Value, tracker *Tracker,
	sampler *Sampler) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		log:       log,
		cfg:       cfg,
		tracker:   tracker,
		sampler:   sampler,
		listeners: NewRegistry(log),
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != 0 {
		return Sampling
	}
	return Idle
}

func (c *Controller) OnSyncComplete(fn Listener) ListenerID {
	return c.listeners.Add(fn)
}

// OffSyncComplete removes the given listeners, or all of them if no id is
// given.
func (c *Controller) OffSyncComplete(ids ...ListenerID) {
	c.listeners.Remove(ids...)
}

// Wait blocks until no session is running and all listeners of finished
// sessions have returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Synchronize starts a session and reports whether it did. A session is not
// started if the sample count is not positive, or if another session is
// running and opts.Force is not set. The outcome is delivered to the
// listeners once the round completes or the timeout expires, whichever comes
// first.
func (c *Controller) Synchronize(opts SyncOptions) bool {
	cfg := c.cfg.Load()
	n := cfg.SynchronizationRequestSamples
	if opts.SampleCount != nil {
		n = *opts.SampleCount
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = cfg.SynchronizationTimeout
	}
	m := mtrcs.Load()
	if n <= 0 {
		m.sessionsIgnored.Inc()
		c.log.Debug("synchronization not started, no samples requested", zap.Int("samples", n))
		return false
	}

	c.mu.Lock()
	if c.active != 0 && !opts.Force {
		c.mu.Unlock()
		m.sessionsIgnored.Inc()
		c.log.Debug("synchronization already in progress, ignoring request")
		return false
	}
	c.lastID++
	c.active++
	c.wg.Add(1)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	s := &session{id: c.lastID, opts: opts, cancel: cancel}
	s.timer = time.AfterFunc(timeout, func() {
		c.finish(s, offset.Offset{}, false, true)
	})
	c.mu.Unlock()

	m.sessionsStarted.Inc()
	c.log.Debug("synchronization started",
		zap.Uint64("session", s.id),
		zap.Int("samples", n),
		zap.Duration("timeout", timeout),
		zap.Bool("force", opts.Force),
		zap.Bool("update", opts.Update),
	)

	go func() {
		best, ok := c.sampler.RunRound(ctx, n, nil)
		c.finish(s, best, ok, ctx.Err() == context.DeadlineExceeded)
	}()
	return true
}

// finish ends s exactly once. Whichever of the round and the deadline timer
// gets here first decides the outcome; the other call returns without
// effect.
func (c *Controller) finish(s *session, best offset.Offset, ok, timedOut bool) {
	c.mu.Lock()
	if s.finished {
		c.mu.Unlock()
		return
	}
	s.finished = true
	c.active--
	c.mu.Unlock()
	defer c.wg.Done()

	s.timer.Stop()
	s.cancel()

	m := mtrcs.Load()
	if timedOut || !ok {
		m.sessionsFailed.Inc()
		target := c.tracker.Target()
		if timedOut {
			c.log.Info("synchronization timed out", zap.Uint64("session", s.id))
		} else {
			c.log.Info("synchronization failed, no usable sample", zap.Uint64("session", s.id))
		}
		c.listeners.Notify(s.opts.Callback, false, target, target)
		return
	}

	m.sessionsSucceeded.Inc()
	newTarget, oldTarget, replaced := c.tracker.UpdateTarget(best, s.opts.Update)
	c.log.Debug("synchronization completed",
		zap.Uint64("session", s.id),
		zap.Object("best", best),
		zap.Bool("replaced", replaced),
	)
	c.listeners.Notify(s.opts.Callback, true, newTarget, oldTarget)
}
