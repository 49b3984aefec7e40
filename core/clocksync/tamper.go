package clocksync

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"example.com/server-time/base/timebase"
	"example.com/server-time/base/timemath"

	"example.com/server-time/core/config"
)

// TamperDetector notices steps of the local clock by comparing consecutive
// readings, taken once per tick, with the tick interval.
type TamperDetector struct {
	log  *zap.Logger
	lclk timebase.LocalClock
	cfg  *config.Value
	// Active reports whether the observing context is active. Nil means
	// always active.
	Active func() bool
	// Resync is called when a step has been detected.
	Resync func()

	mu   sync.Mutex
	last time.Time
}

func NewTamperDetector(log *zap.Logger, lclk timebase.LocalClock, cfg *config.Value,
	resync func()) *TamperDetector {
	if log == nil {
		log = zap.NewNop()
	}
	return &TamperDetector{log: log, lclk: lclk, cfg: cfg, Resync: resync}
}

func (d *TamperDetector) active() bool {
	return d.Active == nil || d.Active()
}

// Tick takes a reading and reports whether a clock step was detected. The
// reading is kept in any case so that one large gap triggers only once.
func (d *TamperDetector) Tick() bool {
	now := d.lclk.Now()
	d.mu.Lock()
	last := d.last
	d.last = now
	d.mu.Unlock()
	if last.IsZero() {
		return false
	}
	c := d.cfg.Load()
	elapsed := now.Sub(last)
	if timemath.Abs(elapsed-c.TickInterval) <= c.TamperSlack || !d.active() {
		return false
	}
	mtrcs.Load().clockJumps.Inc()
	d.log.Info("local clock changed unexpectedly, resynchronizing",
		zap.Duration("elapsed", elapsed),
		zap.Duration("expected", c.TickInterval),
	)
	if d.Resync != nil {
		d.Resync()
	}
	return true
}
