package brand

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is a published config and when it was loaded.
type Snapshot struct {
	Config   *Config
	LoadedAt time.Time
}

// Ticket identifies the generation a load started in.
type Ticket struct {
	gen uint64
}

// Holder publishes one tenant's current config. Readers never block;
// publishing swaps a pointer. Every Invalidate starts a new generation, and
// results from a load begun in an older generation are discarded so a late
// response can never overwrite newer state.
type Holder struct {
	mu   sync.Mutex
	gen  uint64
	snap atomic.Pointer[Snapshot]
}

// Current returns the published snapshot, or nil.
func (h *Holder) Current() *Snapshot {
	return h.snap.Load()
}

// Begin returns a ticket for a load in the current generation.
func (h *Holder) Begin() Ticket {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Ticket{gen: h.gen}
}

// Publish stores cfg if t is still the current generation. It reports
// whether cfg was published.
func (h *Holder) Publish(t Ticket, cfg *Config, at time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t.gen != h.gen {
		return false
	}
	h.snap.Store(&Snapshot{Config: cfg, LoadedAt: at})
	return true
}

// Invalidate drops the published config and starts a new generation.
func (h *Holder) Invalidate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.gen++
	h.snap.Store(nil)
}
