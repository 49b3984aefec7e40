package serverdate_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"example.com/server-time/core/client"
	"example.com/server-time/core/clocksync"
	"example.com/server-time/core/config"
	"example.com/server-time/core/offset"
	"example.com/server-time/core/serverdate"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 250*int(time.Millisecond), time.UTC)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// offsetTransport answers every probe as a remote clock that is off by
// offset, with a round trip of twice precision.
type offsetTransport struct {
	clk       *fixedClock
	offset    time.Duration
	precision time.Duration

	mu     sync.Mutex
	probes int
}

func (t *offsetTransport) Probe(ctx context.Context) (client.Sample, error) {
	t.mu.Lock()
	t.probes++
	t.mu.Unlock()
	sentAt := t.clk.Now()
	receivedAt := sentAt.Add(2 * t.precision)
	return client.Sample{
		RemoteTime: receivedAt.Add(t.offset - t.precision),
		SentAt:     sentAt,
		ReceivedAt: receivedAt,
	}, nil
}

func (t *offsetTransport) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.probes
}

func newClock(t *testing.T, cfg config.Config, off time.Duration) (
	*serverdate.Clock, *fixedClock, *offsetTransport) {
	t.Helper()
	lclk := &fixedClock{now: epoch}
	tr := &offsetTransport{clk: lclk, offset: off, precision: 10 * time.Millisecond}
	c, err := serverdate.New(nil, lclk, tr, cfg, offset.Unbounded(0))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return c, lclk, tr
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.AmortizationRate = 0
	_, err := serverdate.New(nil, &fixedClock{now: epoch}, &offsetTransport{}, cfg, offset.Unbounded(0))
	if err == nil {
		t.Errorf("New() with zero amortization rate succeeded")
	}
}

type failingTransport struct{}

func (failingTransport) Probe(context.Context) (client.Sample, error) {
	return client.Sample{}, errors.New("connection refused")
}

func TestSeed(t *testing.T) {
	lclk := &fixedClock{now: epoch}
	tr := &offsetTransport{clk: lclk, offset: 2 * time.Second, precision: 10 * time.Millisecond}
	seed := serverdate.Seed(context.Background(), nil, tr, time.Second)
	c, err := serverdate.New(nil, lclk, tr, config.Default(), seed)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if got, want := c.Now(), epoch.Add(2*time.Second); !got.Equal(want) {
		t.Errorf("Now() = %v, want %v", got, want)
	}
	if p, ok := c.Precision(); !ok || p != 10*time.Millisecond {
		t.Errorf("Precision() = %v, %v; want 10ms, true", p, ok)
	}
	if n := tr.count(); n != 1 {
		t.Errorf("probes = %d, want 1", n)
	}

	seed = serverdate.Seed(context.Background(), nil, failingTransport{}, time.Second)
	if seed != offset.Unbounded(0) {
		t.Errorf("Seed() after failed probe = %v, want %v", seed, offset.Unbounded(0))
	}
}

func TestSynchronizeJumps(t *testing.T) {
	c, lclk, _ := newClock(t, config.Default(), 5*time.Second)
	if _, ok := c.Precision(); ok {
		t.Errorf("Precision() known before first session")
	}
	if got := c.NowMillis(); got != epoch.UnixMilli() {
		t.Errorf("NowMillis() = %d, want %d", got, epoch.UnixMilli())
	}
	var success bool
	if !c.Synchronize(clocksync.SyncOptions{
		SampleCount: clocksync.Samples(3),
		Callback:    func(ok bool, _, _ offset.Offset) { success = ok },
	}) {
		t.Fatalf("Synchronize() = false")
	}
	c.Wait()
	if !success {
		t.Fatalf("session failed")
	}
	want := lclk.Now().Add(5 * time.Second)
	if got := c.Now(); !got.Equal(want) {
		t.Errorf("Now() = %v, want %v", got, want)
	}
	p, ok := c.Precision()
	if !ok || p != 10*time.Millisecond {
		t.Errorf("Precision() = %v, %v; want 10ms, true", p, ok)
	}
}

func TestConfigure(t *testing.T) {
	c, _, _ := newClock(t, config.Default(), 0)
	err := c.ConfigureTOML([]byte("amortization_rate = 50\nno_such_option = 1\n"))
	if err != nil {
		t.Fatalf("ConfigureTOML() failed: %v", err)
	}
	if got := c.Config().AmortizationRate; got != 50*time.Millisecond {
		t.Errorf("AmortizationRate = %v, want 50ms", got)
	}
	err = c.ConfigureTOML([]byte("synchronization_timeout = -1\n"))
	if err == nil {
		t.Errorf("ConfigureTOML() with negative timeout succeeded")
	}
	if got := c.Config().SynchronizationTimeout; got != config.DefaultSynchronizationTimeout {
		t.Errorf("SynchronizationTimeout = %v after rejected update", got)
	}
	interval := int64(1000)
	err = c.Configure(config.Overrides{SynchronizationIntervalDelay: &interval})
	if err != nil {
		t.Fatalf("Configure() failed: %v", err)
	}
	if got := c.Config().SynchronizationIntervalDelay; got != time.Second {
		t.Errorf("SynchronizationIntervalDelay = %v, want 1s", got)
	}
}

func TestResume(t *testing.T) {
	c, _, tr := newClock(t, config.Default(), 100*time.Millisecond)
	c.SetActive(true)
	c.Wait()
	if n := tr.count(); n != 0 {
		t.Errorf("probes after staying active = %d, want 0", n)
	}
	c.SetActive(false)
	c.SetActive(true)
	c.Wait()
	if n := tr.count(); n != config.DefaultSamplesOnResume {
		t.Errorf("probes after resume = %d, want %d", n, config.DefaultSamplesOnResume)
	}

	zero := 0
	err := c.Configure(config.Overrides{SamplesOnResume: &zero})
	if err != nil {
		t.Fatalf("Configure() failed: %v", err)
	}
	if c.Resume() {
		t.Errorf("Resume() with no samples configured = true")
	}
}

func TestRun(t *testing.T) {
	cfg := config.Default()
	cfg.TickInterval = 5 * time.Millisecond
	c, lclk, _ := newClock(t, cfg, 3*time.Second)
	done := make(chan struct{}, 1)
	c.OnSyncComplete(func(bool, offset.Offset, offset.Offset) {
		select {
		case done <- struct{}{}:
		default:
		}
	})
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(stopped)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("initial synchronization did not complete")
	}
	cancel()
	<-stopped
	if got, want := c.Now(), lclk.Now().Add(3*time.Second); !got.Equal(want) {
		t.Errorf("Now() = %v, want %v", got, want)
	}
}

func TestDate(t *testing.T) {
	c, _, _ := newClock(t, config.Default(), 0)
	d := c.DateIn(time.FixedZone("CET", 3600))
	var tests = []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"FullYear", d.FullYear(), 2024},
		{"Month", d.Month(), time.March},
		{"Day", d.Day(), 1},
		{"Weekday", d.Weekday(), time.Friday},
		{"Hours", d.Hours(), 13},
		{"UTCHours", d.UTCHours(), 12},
		{"Minutes", d.Minutes(), 0},
		{"Seconds", d.Seconds(), 0},
		{"Milliseconds", d.Milliseconds(), 250},
		{"TimezoneOffset", d.TimezoneOffset(), -60},
		{"UnixMilli", d.UnixMilli(), epoch.UnixMilli()},
		{"DateString", d.DateString(), "Fri Mar 01 2024"},
		{"TimeString", d.TimeString(), "13:00:00 GMT+0100 (CET)"},
		{"String", d.String(), "Fri Mar 01 2024 13:00:00 GMT+0100 (CET)"},
		{"UTCString", d.UTCString(), "Fri, 01 Mar 2024 12:00:00 GMT"},
		{"ISOString", d.ISOString(), "2024-03-01T12:00:00.250Z"},
	}
	for _, tc := range tests {
		if tc.got != tc.want {
			t.Errorf("%s() = %v, want %v", tc.name, tc.got, tc.want)
		}
	}
	b, err := d.MarshalJSON()
	if err != nil || string(b) != `"2024-03-01T12:00:00.250Z"` {
		t.Errorf("MarshalJSON() = %s, %v", b, err)
	}
}
