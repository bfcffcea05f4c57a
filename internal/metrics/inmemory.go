package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// StoreTiming aggregates durations for one store operation.
type StoreTiming struct {
	Count   uint64
	Errors  uint64
	TotalNs int64
}

// Snapshot captures current in-memory counters.
type Snapshot struct {
	PostsCreated    uint64
	PostsUpdated    uint64
	PostsDeleted    uint64
	PostCacheHits   uint64
	PostCacheMisses uint64
	RateLimited     uint64

	// Keyed by store operation.
	Store map[string]StoreTiming

	// Keyed by publish status.
	EventsPublished map[string]uint64
}

// InMemoryRecorder stores metrics in memory. It backs the /metrics
// endpoint and tests.
type InMemoryRecorder struct {
	postsCreated    uint64
	postsUpdated    uint64
	postsDeleted    uint64
	postCacheHits   uint64
	postCacheMisses uint64
	rateLimited     uint64

	mu     sync.Mutex
	store  map[string]StoreTiming
	events map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		store:  make(map[string]StoreTiming),
		events: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	snap := Snapshot{
		PostsCreated:    atomic.LoadUint64(&m.postsCreated),
		PostsUpdated:    atomic.LoadUint64(&m.postsUpdated),
		PostsDeleted:    atomic.LoadUint64(&m.postsDeleted),
		PostCacheHits:   atomic.LoadUint64(&m.postCacheHits),
		PostCacheMisses: atomic.LoadUint64(&m.postCacheMisses),
		RateLimited:     atomic.LoadUint64(&m.rateLimited),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snap.Store = make(map[string]StoreTiming, len(m.store))
	for op, timing := range m.store {
		snap.Store[op] = timing
	}
	snap.EventsPublished = make(map[string]uint64, len(m.events))
	for status, count := range m.events {
		snap.EventsPublished[status] = count
	}

	return snap
}

// IncPostCreated increments post created counter.
func (m *InMemoryRecorder) IncPostCreated() {
	atomic.AddUint64(&m.postsCreated, 1)
}

// IncPostUpdated increments post updated counter.
func (m *InMemoryRecorder) IncPostUpdated() {
	atomic.AddUint64(&m.postsUpdated, 1)
}

// IncPostDeleted increments post deleted counter.
func (m *InMemoryRecorder) IncPostDeleted() {
	atomic.AddUint64(&m.postsDeleted, 1)
}

// IncPostCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncPostCacheHit() {
	atomic.AddUint64(&m.postCacheHits, 1)
}

// IncPostCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncPostCacheMiss() {
	atomic.AddUint64(&m.postCacheMisses, 1)
}

// IncRateLimited increments the rejected request counter.
func (m *InMemoryRecorder) IncRateLimited() {
	atomic.AddUint64(&m.rateLimited, 1)
}

// ObserveStoreDuration records a store call.
func (m *InMemoryRecorder) ObserveStoreDuration(op, outcome string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	timing := m.store[op]
	timing.Count++
	if outcome != "ok" {
		timing.Errors++
	}
	timing.TotalNs += duration.Nanoseconds()
	m.store[op] = timing
}

// IncEventPublished counts a publish attempt by status.
func (m *InMemoryRecorder) IncEventPublished(status string) {
	m.mu.Lock()
	m.events[status]++
	m.mu.Unlock()
}
