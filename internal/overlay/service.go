// Package overlay owns the live dataset state for the cursor engine: the
// compiled support/resistance index pair, swapped atomically on dataset
// reload and read lock-free on every pointer event.
package overlay

import (
	"log/slog"
	"sync/atomic"
	"time"

	"trend-overlayv1/internal/metrics"
	"trend-overlayv1/internal/model"
	"trend-overlayv1/internal/ringbuf"
	"trend-overlayv1/internal/trendline"
)

// snapshot is one loaded dataset. Immutable after construction, so readers
// never see a partially applied reload.
type snapshot struct {
	dataset    string
	support    *trendline.Index
	resistance *trendline.Index
}

// Service answers cursor queries against the most recently loaded dataset.
// Load may be called from any goroutine; Query is wait-free with respect to
// concurrent reloads.
type Service struct {
	cur     atomic.Pointer[snapshot]
	metrics *metrics.Metrics // optional
	latency *ringbuf.SampleRing
}

// NewService creates a service with no dataset loaded. Queries against it
// yield sentinel payloads until the first Load. m may be nil (tests).
func NewService(m *metrics.Metrics) *Service {
	s := &Service{
		metrics: m,
		latency: ringbuf.New(8192),
	}
	s.cur.Store(&snapshot{
		support:    trendline.NewIndex(nil),
		resistance: trendline.NewIndex(nil),
	})
	return s
}

// Load compiles a segment set and swaps it in as the active dataset.
// Degenerate and invalid segments are designed skips, surfaced only through
// metrics and a debug log.
func (s *Service) Load(set *model.SegmentSet) {
	sup, res := set.ByCategory()
	supCompiled, supStats := trendline.Compile(sup)
	resCompiled, resStats := trendline.Compile(res)

	s.cur.Store(&snapshot{
		dataset:    set.Dataset,
		support:    trendline.NewIndex(supCompiled),
		resistance: trendline.NewIndex(resCompiled),
	})

	if s.metrics != nil {
		s.metrics.SegmentsCompiled.Add(float64(supStats.Compiled + resStats.Compiled))
		s.metrics.SegmentsSkipped.WithLabelValues("degenerate").Add(float64(supStats.Degenerate + resStats.Degenerate))
		s.metrics.SegmentsSkipped.WithLabelValues("invalid").Add(float64(supStats.Invalid + resStats.Invalid))
		s.metrics.SegmentsIndexed.WithLabelValues(string(model.Support)).Set(float64(supStats.Compiled))
		s.metrics.SegmentsIndexed.WithLabelValues(string(model.Resistance)).Set(float64(resStats.Compiled))
		s.metrics.DatasetReloads.Inc()
	}

	slog.Debug("dataset loaded",
		"dataset", set.Dataset,
		"support", supStats.Compiled,
		"resistance", resStats.Compiled,
		"degenerate", supStats.Degenerate+resStats.Degenerate,
		"invalid", supStats.Invalid+resStats.Invalid,
	)
}

// Query maps one pointer-movement sample to a display payload against the
// active dataset.
func (s *Service) Query(ev model.QueryEvent) model.DisplayPayload {
	start := time.Now()
	snap := s.cur.Load()
	payload := trendline.HandleQuery(ev, snap.support, snap.resistance)

	elapsed := time.Since(start)
	s.latency.Record(float64(elapsed.Nanoseconds()) / 1e6)
	if s.metrics != nil {
		s.metrics.QueriesTotal.Inc()
		s.metrics.QueryDur.Observe(elapsed.Seconds())
	}
	return payload
}

// Dataset returns the active dataset name ("" before the first Load).
func (s *Service) Dataset() string {
	return s.cur.Load().dataset
}

// SegmentCount returns the number of indexed segments across both categories.
func (s *Service) SegmentCount() int {
	snap := s.cur.Load()
	return snap.support.Len() + snap.resistance.Len()
}

// Segments returns the active compiled segments, support then resistance,
// each in end-time order.
func (s *Service) Segments() []trendline.CompiledSegment {
	snap := s.cur.Load()
	return append(snap.support.Segments(), snap.resistance.Segments()...)
}

// LatencyPercentiles returns p50/p95/p99 query latency in milliseconds.
func (s *Service) LatencyPercentiles() (p50, p95, p99 float64) {
	return s.latency.Percentiles()
}
