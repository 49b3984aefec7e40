package clock_test

import (
	"testing"
	"time"

	"example.com/server-time/driver/clock"
)

func TestNowIsWallClock(t *testing.T) {
	c := &clock.SystemClock{}
	before := time.Now().Add(-time.Second)
	now := c.Now()
	after := time.Now().Add(time.Second)
	if now.Before(before) || now.After(after) {
		t.Errorf("SystemClock.Now() = %v, want between %v and %v", now, before, after)
	}
	if now != now.Round(0) {
		t.Errorf("SystemClock.Now() carries a monotonic clock reading")
	}
}
