package clocksync

import (
	"context"
	"sync"

	"github.com/HdrHistogram/hdrhistogram-go"
	"go.uber.org/zap"

	"example.com/server-time/core/client"
	"example.com/server-time/core/offset"
)

// ProbeFunc observes the outcome of a single probe of a round.
type ProbeFunc func(i int, s client.Sample, err error)

type Sampler struct {
	Log       *zap.Logger
	Transport client.Transport
	// Histo, if set, records the round trip delay of every probe in
	// microseconds.
	Histo *hdrhistogram.Histogram

	mu sync.Mutex
}

func (s *Sampler) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Sampler) record(smpl client.Sample) {
	if s.Histo == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.Histo.RecordValue(smpl.RoundTripDelay().Microseconds())
	if err != nil {
		s.log().Debug("failed to record round trip delay", zap.Error(err))
	}
}

// RunRound issues up to n probes one after the other and returns the offset
// derived from the most precise sample. Failed probes are discarded but count
// against n. The round stops early once ctx is done; samples arriving after
// that are ignored. ok is false if no probe produced a usable sample.
func (s *Sampler) RunRound(ctx context.Context, n int, onProbe ProbeFunc) (
	best offset.Offset, ok bool) {
	log := s.log()
	m := mtrcs.Load()
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		m.probesSent.Inc()
		smpl, err := s.Transport.Probe(ctx)
		if ctx.Err() != nil {
			log.Debug("ignoring sample received after round ended", zap.Int("probe", i))
			break
		}
		if onProbe != nil {
			onProbe(i, smpl, err)
		}
		if err != nil {
			m.probesDiscarded.Inc()
			log.Info("failed to probe remote clock, discarding sample",
				zap.Int("probe", i), zap.Error(err))
			continue
		}
		s.record(smpl)
		o := offset.FromSample(smpl.RemoteTime, smpl.SentAt, smpl.ReceivedAt)
		log.Debug("sample received",
			zap.Int("probe", i),
			zap.Time("remote", smpl.RemoteTime),
			zap.Duration("rtt", smpl.RoundTripDelay()),
			zap.Object("offset", o),
		)
		if !ok || !best.Better(o) {
			best, ok = o, true
		}
	}
	return best, ok
}
