package clocksync

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"example.com/server-time/base/metrics"
)

type syncMetrics struct {
	currentOffset     prometheus.Gauge
	targetOffset      prometheus.Gauge
	precision         prometheus.Gauge
	jumps             prometheus.Counter
	amortSteps        prometheus.Counter
	clockJumps        prometheus.Counter
	sessionsStarted   prometheus.Counter
	sessionsIgnored   prometheus.Counter
	sessionsSucceeded prometheus.Counter
	sessionsFailed    prometheus.Counter
	probesSent        prometheus.Counter
	probesDiscarded   prometheus.Counter
}

var mtrcs atomic.Pointer[syncMetrics]

func init() {
	mtrcs.Store(newSyncMetrics())
}

func newSyncMetrics() *syncMetrics {
	return &syncMetrics{
		currentOffset: promauto.NewGauge(prometheus.GaugeOpts{
			Name: metrics.SyncCurrentOffsetN,
			Help: metrics.SyncCurrentOffsetH,
		}),
		targetOffset: promauto.NewGauge(prometheus.GaugeOpts{
			Name: metrics.SyncTargetOffsetN,
			Help: metrics.SyncTargetOffsetH,
		}),
		precision: promauto.NewGauge(prometheus.GaugeOpts{
			Name: metrics.SyncPrecisionN,
			Help: metrics.SyncPrecisionH,
		}),
		jumps: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.SyncJumpsN,
			Help: metrics.SyncJumpsH,
		}),
		amortSteps: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.SyncAmortStepsN,
			Help: metrics.SyncAmortStepsH,
		}),
		clockJumps: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.SyncClockJumpsN,
			Help: metrics.SyncClockJumpsH,
		}),
		sessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.SessionsStartedN,
			Help: metrics.SessionsStartedH,
		}),
		sessionsIgnored: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.SessionsIgnoredN,
			Help: metrics.SessionsIgnoredH,
		}),
		sessionsSucceeded: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.SessionsSucceededN,
			Help: metrics.SessionsSucceededH,
		}),
		sessionsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.SessionsFailedN,
			Help: metrics.SessionsFailedH,
		}),
		probesSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.ProbesSentN,
			Help: metrics.ProbesSentH,
		}),
		probesDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.ProbesDiscardedN,
			Help: metrics.ProbesDiscardedH,
		}),
	}
}
