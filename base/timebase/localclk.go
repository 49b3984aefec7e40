package timebase

import (
	"time"
)

// LocalClock is the unsynchronized clock of the host. Now must not carry a
// monotonic reading: steps of the wall clock have to be visible to callers.
type LocalClock interface {
	Now() time.Time
	Sleep(duration time.Duration)
}
