package metrics

import (
	"sync"
	"time"
)

// bucket holds the counters for one entity type.
type bucket struct {
	mu             sync.Mutex
	hits           int64
	misses         int64
	totalLatencyMs float64
	requestCount   int64
}

func (b *bucket) record(hit bool, latency time.Duration) {
	ms := float64(latency.Microseconds()) / 1000
	b.mu.Lock()
	if hit {
		b.hits++
	} else {
		b.misses++
	}
	b.totalLatencyMs += ms
	b.requestCount++
	b.mu.Unlock()
}

func (b *bucket) add(s snapshot) {
	b.mu.Lock()
	b.hits += s.hits
	b.misses += s.misses
	b.totalLatencyMs += s.totalLatencyMs
	b.requestCount += s.requestCount
	b.mu.Unlock()
}

func (b *bucket) reset() {
	b.mu.Lock()
	b.hits, b.misses, b.totalLatencyMs, b.requestCount = 0, 0, 0, 0
	b.mu.Unlock()
}

func (b *bucket) snapshot() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return snapshot{
		hits:           b.hits,
		misses:         b.misses,
		totalLatencyMs: b.totalLatencyMs,
		requestCount:   b.requestCount,
	}
}

// snapshot is a consistent copy of a bucket.
type snapshot struct {
	hits           int64
	misses         int64
	totalLatencyMs float64
	requestCount   int64
}

func (s snapshot) entity() EntityMetrics {
	m := EntityMetrics{
		Hits:          s.hits,
		Misses:        s.misses,
		TotalRequests: s.hits + s.misses,
	}
	if m.TotalRequests > 0 {
		m.HitRate = float64(s.hits) / float64(m.TotalRequests) * 100
	}
	if s.requestCount > 0 {
		m.AvgLatencyMs = s.totalLatencyMs / float64(s.requestCount)
	}
	return m
}

// EntityMetrics is the derived view of one entity type's counters.
type EntityMetrics struct {
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	TotalRequests int64   `json:"totalRequests"`
	HitRate       float64 `json:"hitRate"`
	AvgLatencyMs  float64 `json:"avgLatencyMs"`
}
