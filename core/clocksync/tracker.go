package clocksync

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"example.com/server-time/base/timebase"
	"example.com/server-time/base/timemath"

	"example.com/server-time/core/config"
	"example.com/server-time/core/offset"
)

// Tracker holds the offset exposed to callers (current) and the offset it
// converges to (target). It is the only state shared between the controller,
// the amortizer and the tamper detector; all writes replace values under mu.
type Tracker struct {
	log  *zap.Logger
	lclk timebase.LocalClock
	cfg  *config.Value

	mu      sync.Mutex
	current time.Duration
	target  offset.Offset
}

func NewTracker(log *zap.Logger, lclk timebase.LocalClock, cfg *config.Value,
	initial offset.Offset) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	t := &Tracker{
		log:     log,
		lclk:    lclk,
		cfg:     cfg,
		current: initial.Value(),
		target:  initial,
	}
	t.log.Debug("initial target set", zap.Object("target", initial))
	t.publish()
	return t
}

func (t *Tracker) publish() {
	m := mtrcs.Load()
	m.currentOffset.Set(t.current.Seconds())
	m.targetOffset.Set(t.target.Value().Seconds())
	if p, ok := t.precisionLocked(); ok {
		m.precision.Set(p.Seconds())
	}
}

// SetTarget accepts a new target. If it is farther than the amortization
// threshold from the current offset, current jumps to it immediately.
func (t *Tracker) SetTarget(o offset.Offset) (jumped bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.setTargetLocked(o)
}

func (t *Tracker) setTargetLocked(o offset.Offset) bool {
	diff := o.Sub(t.target)
	t.target = o
	t.log.Debug("target set",
		zap.Object("target", o),
		zap.Duration("change", diff),
	)

	jumped := false
	delta := timemath.Abs(o.Value() - t.current)
	if delta > t.cfg.Load().AmortizationThreshold {
		t.log.Debug("difference between target and offset too high, skipping amortization",
			zap.Duration("delta", delta))
		t.current = o.Value()
		mtrcs.Load().jumps.Inc()
		jumped = true
	}
	t.publish()
	return jumped
}

// UpdateTarget applies the result of a synchronization session. With
// onlyIfBetter set, the target is replaced only by a strictly more precise
// offset. It returns the target after the update and the one before it;
// both are equal if the update was declined.
func (t *Tracker) UpdateTarget(o offset.Offset, onlyIfBetter bool) (
	newTarget, oldTarget offset.Offset, replaced bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	oldTarget = t.target
	if onlyIfBetter && !o.Better(oldTarget) {
		t.log.Debug("target not updated, best sample not any better",
			zap.Object("best", o),
			zap.Object("target", oldTarget),
		)
		return oldTarget, oldTarget, false
	}
	t.setTargetLocked(o)
	return o, oldTarget, true
}

// step moves current toward target by at most rate and returns the change.
func (t *Tracker) step(rate time.Duration) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.target.Value() - t.current
	if d == 0 {
		return 0
	}
	delta := timemath.Clamp(d, -rate, rate)
	t.current += delta
	t.publish()
	return delta
}

func (t *Tracker) Target() offset.Offset {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.target
}

func (t *Tracker) Current() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Now returns the estimate of the remote clock.
func (t *Tracker) Now() time.Time {
	now := t.lclk.Now()
	return now.Add(t.Current())
}

// Precision returns the uncertainty of Now: the target's precision grown by
// the distance that is still to be amortized. ok is false while the target's
// precision is unknown.
func (t *Tracker) Precision() (p time.Duration, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.precisionLocked()
}

func (t *Tracker) precisionLocked() (time.Duration, bool) {
	p, ok := t.target.Precision()
	if !ok {
		return 0, false
	}
	return p + timemath.Abs(t.target.Value()-t.current), true
}
