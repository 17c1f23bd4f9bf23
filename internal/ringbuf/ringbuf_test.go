package ringbuf

import (
	"math"
	"testing"
)

func TestEmptyRing(t *testing.T) {
	r := New(16)
	p50, p95, p99 := r.Percentiles()
	if p50 != 0 || p95 != 0 || p99 != 0 {
		t.Errorf("empty ring should report zeros, got %v %v %v", p50, p95, p99)
	}
	if r.Count() != 0 {
		t.Errorf("expected count 0, got %d", r.Count())
	}
}

func TestPercentiles_UniformSamples(t *testing.T) {
	r := New(200)
	// 1..100 ms
	for i := 1; i <= 100; i++ {
		r.Record(float64(i))
	}

	p50, p95, p99 := r.Percentiles()
	if math.Abs(p50-50.5) > 0.01 {
		t.Errorf("p50 = %v, want ~50.5", p50)
	}
	if math.Abs(p95-95.05) > 0.01 {
		t.Errorf("p95 = %v, want ~95.05", p95)
	}
	if math.Abs(p99-99.01) > 0.01 {
		t.Errorf("p99 = %v, want ~99.01", p99)
	}
}

func TestEvictsOldestWhenFull(t *testing.T) {
	r := New(4)
	for i := 0; i < 8; i++ {
		r.Record(float64(i))
	}
	if r.Count() != 4 {
		t.Fatalf("expected count capped at 4, got %d", r.Count())
	}
	// survivors are 4,5,6,7
	p50, _, p99 := r.Percentiles()
	if p50 < 4 || p99 > 7 {
		t.Errorf("percentiles outside surviving window: p50=%v p99=%v", p50, p99)
	}
}

func TestSingleSample(t *testing.T) {
	r := New(8)
	r.Record(3.25)
	p50, p95, p99 := r.Percentiles()
	if p50 != 3.25 || p95 != 3.25 || p99 != 3.25 {
		t.Errorf("single sample should dominate all percentiles, got %v %v %v", p50, p95, p99)
	}
}

func TestZeroCapacityFallsBack(t *testing.T) {
	r := New(0)
	r.Record(1.0)
	if r.Count() != 1 {
		t.Errorf("expected fallback capacity to accept samples, got count %d", r.Count())
	}
}
