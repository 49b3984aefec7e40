//go:build linux

package clock

import (
	"time"

	"go.uber.org/zap"

	"golang.org/x/sys/unix"

	"example.com/server-time/base/timebase"
)

type SystemClock struct {
	Log *zap.Logger
}

var _ timebase.LocalClock = (*SystemClock)(nil)

func (c *SystemClock) Now() time.Time {
	var ts unix.Timespec
	err := unix.ClockGettime(unix.CLOCK_REALTIME, &ts)
	if err != nil {
		if c.Log != nil {
			c.Log.Error("unix.ClockGettime failed", zap.Error(err))
		}
		return time.Now().Round(0)
	}
	return time.Unix(ts.Unix()).UTC()
}

func (c *SystemClock) Sleep(duration time.Duration) {
	if c.Log != nil {
		c.Log.Debug("SystemClock.Sleep", zap.Duration("duration", duration))
	}
	time.Sleep(duration)
}
