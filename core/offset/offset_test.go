package offset_test

import (
	"testing"
	"time"

	"example.com/server-time/core/offset"
)

func TestFromSample(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name          string
		remote        time.Time
		sentAt        time.Time
		receivedAt    time.Time
		wantValue     time.Duration
		wantPrecision time.Duration
	}{
		{
			name:          "in sync",
			remote:        t0.Add(50 * time.Millisecond),
			sentAt:        t0,
			receivedAt:    t0.Add(100 * time.Millisecond),
			wantValue:     0,
			wantPrecision: 50 * time.Millisecond,
		},
		{
			name:          "remote ahead",
			remote:        t0.Add(5 * time.Second),
			sentAt:        t0,
			receivedAt:    t0.Add(80 * time.Millisecond),
			wantValue:     5*time.Second - 40*time.Millisecond,
			wantPrecision: 40 * time.Millisecond,
		},
		{
			name:          "remote behind",
			remote:        t0.Add(-time.Second),
			sentAt:        t0,
			receivedAt:    t0.Add(30 * time.Millisecond),
			wantValue:     -time.Second - 15*time.Millisecond,
			wantPrecision: 15 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := offset.FromSample(tt.remote, tt.sentAt, tt.receivedAt)
			if o.Value() != tt.wantValue {
				t.Errorf("Value() = %v, want %v", o.Value(), tt.wantValue)
			}
			p, ok := o.Precision()
			if !ok || p != tt.wantPrecision {
				t.Errorf("Precision() = %v, %v, want %v, true", p, ok, tt.wantPrecision)
			}
		})
	}
}

func TestBetter(t *testing.T) {
	a := offset.New(0, 10*time.Millisecond)
	b := offset.New(time.Second, 20*time.Millisecond)
	u := offset.Unbounded(0)

	if !a.Better(b) {
		t.Errorf("%v must be better than %v", a, b)
	}
	if b.Better(a) {
		t.Errorf("%v must not be better than %v", b, a)
	}
	if a.Better(a) {
		t.Errorf("%v must not be better than itself", a)
	}
	if a.Better(u) {
		t.Errorf("%v must not be better than %v", a, u)
	}
	if u.Better(a) || u.Better(u) {
		t.Errorf("%v must never be better", u)
	}
}

func TestBootstrap(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	serverNow := t0.Add(time.Hour)

	o := offset.Bootstrap(serverNow, t0, time.Time{})
	if o.Value() != time.Hour {
		t.Errorf("Value() = %v, want %v", o.Value(), time.Hour)
	}
	if _, ok := o.Precision(); ok {
		t.Errorf("precision must be unknown without a request timestamp")
	}

	o = offset.Bootstrap(serverNow, t0, t0.Add(-200*time.Millisecond))
	if o.Value() != time.Hour+100*time.Millisecond {
		t.Errorf("Value() = %v, want %v", o.Value(), time.Hour+100*time.Millisecond)
	}
	if p, ok := o.Precision(); !ok || p != 100*time.Millisecond {
		t.Errorf("Precision() = %v, %v, want 100ms, true", p, ok)
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		o    offset.Offset
		want string
	}{
		{offset.New(1500*time.Millisecond, 20*time.Millisecond), "1500 +/- 20 ms"},
		{offset.Unbounded(-3 * time.Millisecond), "-3 ms"},
	}
	for _, tt := range tests {
		if got := tt.o.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestNewPanicsOnNegativePrecision(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("offset.New with negative precision did not panic")
		}
	}()
	offset.New(0, -time.Millisecond)
}
