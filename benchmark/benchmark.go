// Package benchmark measures the round trip delays and offsets observed
// when probing a time server.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"go.uber.org/zap"

	"example.com/server-time/base/timemath"

	"example.com/server-time/core/client"
	"example.com/server-time/core/clocksync"
	"example.com/server-time/core/offset"
)

// TransportIP selects the plain UDP NTP client of this package.
const TransportIP = "ip"

var errNoSample = errors.New("no usable sample")

type Config struct {
	Transport string
	Remote    string
	Clients   int
	Requests  int
	// Timeout bounds the whole run; zero means no limit.
	Timeout time.Duration
}

func newTransport(kind, remote string) (client.Transport, func() error, error) {
	if kind == TransportIP {
		t, err := dialIP(remote)
		if err != nil {
			return nil, nil, err
		}
		return t, t.Close, nil
	}
	t, err := client.NewTransport(kind, remote, nil)
	if err != nil {
		return nil, nil, err
	}
	return t, func() error { return nil }, nil
}

// Run probes the server with cfg.Clients concurrent clients issuing
// cfg.Requests probes each and prints the round trip delay percentiles in
// microseconds followed by the best offset observed.
func Run(ctx context.Context, log *zap.Logger, cfg Config, out io.Writer) error {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Clients <= 0 {
		cfg.Clients = 1
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	var mu sync.Mutex
	hg := hdrhistogram.New(1, 50000000, 5)
	var best offset.Offset
	var ok bool
	var offsets []time.Duration
	var firstErr error

	sg := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(cfg.Clients)
	for i := range cfg.Clients {
		go func() {
			defer wg.Done()
			t, closeFn, err := newTransport(cfg.Transport, cfg.Remote)
			if err != nil {
				mu.Lock()
				firstErr = errors.Join(firstErr, err)
				mu.Unlock()
				return
			}
			defer func() { _ = closeFn() }()
			s := &clocksync.Sampler{
				Log:       log.With(zap.Int("client", i)),
				Transport: t,
				Histo:     hdrhistogram.New(1, 50000000, 5),
			}
			var values []time.Duration
			<-sg
			o, sampled := s.RunRound(ctx, cfg.Requests, func(_ int, smpl client.Sample, err error) {
				if err == nil {
					values = append(values, offset.FromSample(
						smpl.RemoteTime, smpl.SentAt, smpl.ReceivedAt).Value())
				}
			})

			mu.Lock()
			defer mu.Unlock()
			offsets = append(offsets, values...)
			if dropped := hg.Merge(s.Histo); dropped != 0 {
				log.Info("failed to merge histogram values", zap.Int64("dropped", dropped))
			}
			if sampled && (!ok || o.Better(best)) {
				best, ok = o, true
			}
		}()
	}
	t0 := time.Now()
	close(sg)
	wg.Wait()
	elapsed := time.Since(t0)

	if firstErr != nil {
		return firstErr
	}
	hg.PercentilesPrint(out, 1, 1.0)
	if !ok {
		return errNoSample
	}
	_, err := fmt.Fprintf(out, "samples: %d, elapsed: %v, best offset: %v, median offset: %v ms\n",
		hg.TotalCount(), elapsed, best, timemath.Millis(timemath.Median(offsets)))
	return err
}
