package clocksync

import (
	"sync"

	"go.uber.org/zap"

	"example.com/server-time/core/offset"
)

// Listener is notified when a synchronization session ends. On success
// newTarget is the target after the session and oldTarget the one before;
// both are equal if the target was kept.
type Listener func(success bool, newTarget, oldTarget offset.Offset)

// ListenerID identifies a registered listener. The zero value is never
// assigned.
type ListenerID uint64

type registryEntry struct {
	id ListenerID
	fn Listener
}

type Registry struct {
	log *zap.Logger

	mu      sync.Mutex
	nextID  ListenerID
	entries []registryEntry
}

func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{log: log}
}

func (r *Registry) Add(fn Listener) ListenerID {
	if fn == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.entries = append(r.entries, registryEntry{id: r.nextID, fn: fn})
	return r.nextID
}

// Remove unregisters the given listeners. Without arguments all listeners
// are removed. Unknown ids are ignored.
func (r *Registry) Remove(ids ...ListenerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(ids) == 0 {
		r.entries = nil
		return
	}
	kept := r.entries[:0:0]
	for _, e := range r.entries {
		drop := false
		for _, id := range ids {
			if e.id == id {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, e)
		}
	}
	r.entries = kept
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Notify calls every registered listener in registration order, followed by
// extra if it is not nil. The set of listeners is fixed when Notify is
// entered. A panicking listener does not keep the others from running.
func (r *Registry) Notify(extra Listener, success bool, newTarget, oldTarget offset.Offset) {
	r.mu.Lock()
	fns := make([]Listener, 0, len(r.entries)+1)
	for _, e := range r.entries {
		fns = append(fns, e.fn)
	}
	r.mu.Unlock()
	if extra != nil {
		fns = append(fns, extra)
	}
	for i, fn := range fns {
		r.call(i, fn, success, newTarget, oldTarget)
	}
}

func (r *Registry) call(i int, fn Listener, success bool, newTarget, oldTarget offset.Offset) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("synchronization listener failed",
				zap.Int("listener", i), zap.Any("panic", p))
		}
	}()
	fn(success, newTarget, oldTarget)
}
