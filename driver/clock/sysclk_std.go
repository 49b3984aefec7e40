//go:build !linux

package clock

import (
	"time"

	"go.uber.org/zap"

	"example.com/server-time/base/timebase"
)

type SystemClock struct {
	Log *zap.Logger
}

var _ timebase.LocalClock = (*SystemClock)(nil)

func (c *SystemClock) Now() time.Time {
	return time.Now().Round(0).UTC()
}

func (c *SystemClock) Sleep(duration time.Duration) {
	if c.Log != nil {
		c.Log.Debug("SystemClock.Sleep", zap.Duration("duration", duration))
	}
	time.Sleep(duration)
}
