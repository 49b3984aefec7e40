package config

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultAmortizationRate              = 25 * time.Millisecond
	DefaultAmortizationThreshold         = 2000 * time.Millisecond
	DefaultSynchronizationIntervalDelay  = 60 * 60 * 1000 * time.Millisecond
	DefaultSynchronizationRequestSamples = 10
	DefaultSynchronizationTimeout        = 10 * 1000 * time.Millisecond
	DefaultSamplesOnResume               = 1
	DefaultTickInterval                  = 1 * time.Second
	DefaultTamperSlack                   = 2 * time.Second
)

var (
	errInvalidDuration    = errors.New("invalid duration")
	errInvalidSampleCount = errors.New("invalid sample count")
)

// Config is the process-wide synchronization configuration.
type Config struct {
	// AmortizationRate is the largest offset change applied per tick.
	AmortizationRate time.Duration
	// AmortizationThreshold is the distance beyond which a new target is
	// applied at once instead of being amortized.
	AmortizationThreshold         time.Duration
	SynchronizationIntervalDelay  time.Duration
	SynchronizationRequestSamples int
	SynchronizationTimeout        time.Duration
	// SamplesOnResume is the number of samples taken when the observing
	// context becomes active again; 0 disables resynchronization on resume.
	SamplesOnResume int
	TickInterval    time.Duration
	TamperSlack     time.Duration
}

// Overrides holds optional settings. Durations are given in milliseconds.
type Overrides struct {
	AmortizationRate              *int64 `toml:"amortization_rate,omitempty"`
	AmortizationThreshold         *int64 `toml:"amortization_threshold,omitempty"`
	SynchronizationIntervalDelay  *int64 `toml:"synchronization_interval_delay,omitempty"`
	SynchronizationRequestSamples *int   `toml:"synchronization_request_samples,omitempty"`
	SynchronizationTimeout        *int64 `toml:"synchronization_timeout,omitempty"`
	SamplesOnResume               *int   `toml:"samples_on_resume,omitempty"`
	TickInterval                  *int64 `toml:"tick_interval,omitempty"`
	TamperSlack                   *int64 `toml:"tamper_slack,omitempty"`
}

func Default() Config {
	return Config{
		AmortizationRate:              DefaultAmortizationRate,
		AmortizationThreshold:         DefaultAmortizationThreshold,
		SynchronizationIntervalDelay:  DefaultSynchronizationIntervalDelay,
		SynchronizationRequestSamples: DefaultSynchronizationRequestSamples,
		SynchronizationTimeout:        DefaultSynchronizationTimeout,
		SamplesOnResume:               DefaultSamplesOnResume,
		TickInterval:                  DefaultTickInterval,
		TamperSlack:                   DefaultTamperSlack,
	}
}

func (c Config) Validate() error {
	ds := []struct {
		name string
		d    time.Duration
	}{
		{"amortization_rate", c.AmortizationRate},
		{"amortization_threshold", c.AmortizationThreshold},
		{"synchronization_interval_delay", c.SynchronizationIntervalDelay},
		{"synchronization_timeout", c.SynchronizationTimeout},
		{"tick_interval", c.TickInterval},
		{"tamper_slack", c.TamperSlack},
	}
	for _, x := range ds {
		if x.d <= 0 {
			return fmt.Errorf("%s: %w: %v", x.name, errInvalidDuration, x.d)
		}
	}
	if c.SynchronizationRequestSamples < 0 {
		return fmt.Errorf("synchronization_request_samples: %w: %d",
			errInvalidSampleCount, c.SynchronizationRequestSamples)
	}
	if c.SamplesOnResume < 0 {
		return fmt.Errorf("samples_on_resume: %w: %d", errInvalidSampleCount, c.SamplesOnResume)
	}
	return nil
}

func millis(v int64) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// Apply merges the set fields of o into c. It reports whether the
// synchronization interval changed.
func (c Config) Apply(o Overrides) (Config, bool, error) {
	n := c
	if o.AmortizationRate != nil {
		n.AmortizationRate = millis(*o.AmortizationRate)
	}
	if o.AmortizationThreshold != nil {
		n.AmortizationThreshold = millis(*o.AmortizationThreshold)
	}
	if o.SynchronizationIntervalDelay != nil {
		n.SynchronizationIntervalDelay = millis(*o.SynchronizationIntervalDelay)
	}
	if o.SynchronizationRequestSamples != nil {
		n.SynchronizationRequestSamples = *o.SynchronizationRequestSamples
	}
	if o.SynchronizationTimeout != nil {
		n.SynchronizationTimeout = millis(*o.SynchronizationTimeout)
	}
	if o.SamplesOnResume != nil {
		n.SamplesOnResume = *o.SamplesOnResume
	}
	if o.TickInterval != nil {
		n.TickInterval = millis(*o.TickInterval)
	}
	if o.TamperSlack != nil {
		n.TamperSlack = millis(*o.TamperSlack)
	}
	err := n.Validate()
	if err != nil {
		return c, false, err
	}
	return n, n.SynchronizationIntervalDelay != c.SynchronizationIntervalDelay, nil
}

// DecodeOverrides decodes TOML overrides. Unknown keys are ignored.
func DecodeOverrides(raw []byte) (Overrides, error) {
	var o Overrides
	err := toml.NewDecoder(bytes.NewReader(raw)).Decode(&o)
	if err != nil {
		return Overrides{}, fmt.Errorf("failed to decode overrides: %w", err)
	}
	return o, nil
}
