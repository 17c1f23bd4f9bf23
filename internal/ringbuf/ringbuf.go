// Package ringbuf provides a fixed-capacity circular buffer of query-latency
// samples with percentile readout. Recording is cheap enough for the cursor
// hot path; percentile computation copies and sorts, so it belongs on the
// reporting path (/health), not the query path.
package ringbuf

import (
	"math"
	"sort"
	"sync"
)

// SampleRing holds the last `capacity` latency samples in milliseconds.
// Thread-safe.
type SampleRing struct {
	mu      sync.Mutex
	samples []float64
	pos     int
	count   int
	cap     int
}

// New creates a ring that retains the last `capacity` samples.
func New(capacity int) *SampleRing {
	if capacity <= 0 {
		capacity = 4096
	}
	return &SampleRing{
		samples: make([]float64, capacity),
		cap:     capacity,
	}
}

// Record adds a latency sample in milliseconds, evicting the oldest sample
// once the ring is full.
func (r *SampleRing) Record(latencyMs float64) {
	r.mu.Lock()
	r.samples[r.pos] = latencyMs
	r.pos = (r.pos + 1) % r.cap
	if r.count < r.cap {
		r.count++
	}
	r.mu.Unlock()
}

// Percentiles returns p50, p95, p99 latency in milliseconds.
// Returns (0, 0, 0) if no samples have been recorded.
func (r *SampleRing) Percentiles() (p50, p95, p99 float64) {
	r.mu.Lock()
	n := r.count
	if n == 0 {
		r.mu.Unlock()
		return 0, 0, 0
	}
	sorted := make([]float64, n)
	if n == r.cap {
		// full: oldest sample sits at pos
		copy(sorted, r.samples[r.pos:])
		copy(sorted[r.cap-r.pos:], r.samples[:r.pos])
	} else {
		copy(sorted, r.samples[:n])
	}
	r.mu.Unlock()

	sort.Float64s(sorted)
	return percentile(sorted, 0.50), percentile(sorted, 0.95), percentile(sorted, 0.99)
}

// Count returns the number of samples recorded (up to capacity).
func (r *SampleRing) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// percentile computes the p-th percentile (0.0–1.0) of a sorted slice
// with linear interpolation between ranks.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	rank := p * float64(n-1)
	lower := int(math.Floor(rank))
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}
	frac := rank - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}
