package timemath

import (
	"math"
	"slices"
	"time"
)

func Inv(d time.Duration) time.Duration {
	if d == math.MinInt64 {
		panic("unexpected duration value")
	}
	return -d
}

func Abs(d time.Duration) time.Duration {
	if d < 0 {
		return Inv(d)
	}
	return d
}

// Clamp limits d to the closed interval [lo, hi].
func Clamp(d, lo, hi time.Duration) time.Duration {
	if lo > hi {
		panic("unexpected interval bounds")
	}
	return max(lo, min(hi, d))
}

func Midpoint(x, y time.Duration) time.Duration {
	return x + (y-x)/2
}

func Median(ds []time.Duration) time.Duration {
	n := len(ds)
	if n == 0 {
		panic("unexpected number of values")
	}
	slices.Sort(ds)
	i := n / 2
	if n%2 != 0 {
		return ds[i]
	}
	return Midpoint(ds[i-1], ds[i])
}

func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
