//go:build !linux

package udp

import (
	"errors"
	"net"
	"time"
)

func TimestampLen() int {
	return 0
}

func EnableRxTimestamps(conn *net.UDPConn) error {
	return errors.ErrUnsupported
}

func TimestampFromOOBData(oob []byte) (time.Time, error) {
	return time.Time{}, errTimestampNotFound
}
