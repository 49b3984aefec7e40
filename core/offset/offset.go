package offset

import (
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"

	"example.com/server-time/base/timemath"
)

// Offset is a correction added to the local clock to estimate the remote
// clock, together with its uncertainty. Offsets are immutable.
type Offset struct {
	value        time.Duration
	precision    time.Duration
	hasPrecision bool
}

func New(value, precision time.Duration) Offset {
	if precision < 0 {
		panic("unexpected negative precision")
	}
	return Offset{value: value, precision: precision, hasPrecision: true}
}

// Unbounded returns an offset whose precision is unknown.
func Unbounded(value time.Duration) Offset {
	return Offset{value: value}
}

// FromSample computes the offset measured by one round trip: the remote
// timestamp is assumed to be taken halfway between sentAt and receivedAt.
func FromSample(remote, sentAt, receivedAt time.Time) Offset {
	rtt := receivedAt.Sub(sentAt)
	if rtt < 0 {
		rtt = 0
	}
	precision := rtt / 2
	return New(remote.Sub(receivedAt)+precision, precision)
}

// Bootstrap estimates an offset from a remote timestamp that was embedded
// in a response received at receivedAt. If requestedAt is known, half of the
// elapsed time is credited as latency; otherwise the precision is unknown.
func Bootstrap(serverNow, receivedAt, requestedAt time.Time) Offset {
	v := serverNow.Sub(receivedAt)
	if requestedAt.IsZero() || receivedAt.Before(requestedAt) {
		return Unbounded(v)
	}
	precision := receivedAt.Sub(requestedAt) / 2
	return New(v+precision, precision)
}

func (o Offset) Value() time.Duration { return o.value }

func (o Offset) Precision() (time.Duration, bool) {
	return o.precision, o.hasPrecision
}

// Better reports whether o is strictly more precise than x. It is false if
// either precision is unknown.
func (o Offset) Better(x Offset) bool {
	if !o.hasPrecision || !x.hasPrecision {
		return false
	}
	return o.precision < x.precision
}

// Sub returns the signed distance between the values of o and x.
func (o Offset) Sub(x Offset) time.Duration {
	return o.value - x.value
}

func (o Offset) String() string {
	if !o.hasPrecision {
		return fmt.Sprintf("%v ms", timemath.Millis(o.value))
	}
	return fmt.Sprintf("%v +/- %v ms", timemath.Millis(o.value), timemath.Millis(o.precision))
}

func (o Offset) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddDuration("value", o.value)
	if o.hasPrecision {
		enc.AddDuration("precision", o.precision)
	}
	return nil
}
