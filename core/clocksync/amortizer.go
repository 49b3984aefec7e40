package clocksync

import (
	"time"

	"go.uber.org/zap"

	"example.com/server-time/core/config"
)

// Amortizer moves the current offset toward the target by at most the
// amortization rate per tick so that observers never see a larger step.
type Amortizer struct {
	log     *zap.Logger
	cfg     *config.Value
	tracker *Tracker
}

func NewAmortizer(log *zap.Logger, cfg *config.Value, tracker *Tracker) *Amortizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Amortizer{log: log, cfg: cfg, tracker: tracker}
}

func (a *Amortizer) Tick() time.Duration {
	delta := a.tracker.step(a.cfg.Load().AmortizationRate)
	if delta != 0 {
		mtrcs.Load().amortSteps.Inc()
		a.log.Debug("offset adjusted",
			zap.Duration("delta", delta),
			zap.Duration("offset", a.tracker.Current()),
			zap.Duration("target", a.tracker.Target().Value()),
		)
	}
	return delta
}
