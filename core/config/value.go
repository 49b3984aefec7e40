package config

import (
	"sync/atomic"
)

// Value holds the current configuration. It is safe for concurrent use;
// a stored Config is never modified in place.
type Value struct {
	p atomic.Pointer[Config]
}

func NewValue(c Config) *Value {
	v := &Value{}
	v.Store(c)
	return v
}

func (v *Value) Load() Config {
	c := v.p.Load()
	if c == nil {
		return Default()
	}
	return *c
}

func (v *Value) Store(c Config) {
	v.p.Store(&c)
}
