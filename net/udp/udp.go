// Package udp reads kernel receive timestamps of UDP packets.
package udp

import (
	"errors"
	"time"
)

var (
	errTimestampNotFound = errors.New("failed to read timestamp from out of band data")
	errUnexpectedData    = errors.New("failed to read out of band data")
)

// ReceiveTime maps a kernel receive timestamp rx, taken on the system clock
// at sysNow, onto a clock that currently reads srcNow.
func ReceiveTime(rx, sysNow, srcNow time.Time) time.Time {
	elapsed := sysNow.Sub(rx)
	if elapsed < 0 {
		elapsed = 0
	}
	return srcNow.Add(-elapsed)
}
