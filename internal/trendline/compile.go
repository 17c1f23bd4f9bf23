// Package trendline is the projection-and-delta engine behind the cursor
// overlay. It compiles raw detected segments into slope/intercept form,
// indexes them per category by end time, and answers per-pointer-event
// queries with signed percentage deltas against the most recently concluded
// line. Everything here is pure computation on immutable inputs: no I/O,
// no shared mutable state.
package trendline

import (
	"math"

	"trend-overlayv1/internal/model"
)

// CompiledSegment is a raw segment reduced to line-equation form on the
// millisecond time base: value = Slope*timeMs + Intercept. EndTimeMs is the
// later of the two anchor timestamps and acts as the selection key.
// Immutable once constructed.
type CompiledSegment struct {
	Category    model.Category
	StartTimeMs int64
	EndTimeMs   int64
	Slope       float64
	Intercept   float64
}

// CompileStats counts what compilation kept and dropped. The drops are
// designed skips, not failures; callers only ever observe a smaller output.
type CompileStats struct {
	Compiled   int
	Degenerate int // zero time span between anchors
	Invalid    int // non-finite anchor price
}

// Compile converts raw segments for one category into compiled form.
// Segments whose two anchors map to the same millisecond are degenerate
// (vertical) and silently excluded; segments with NaN/Inf anchor prices are
// likewise excluded. Output order follows input order.
func Compile(segments []model.Segment) ([]CompiledSegment, CompileStats) {
	var stats CompileStats
	out := make([]CompiledSegment, 0, len(segments))
	for _, seg := range segments {
		t0 := seg.Start.UnixMilli()
		t1 := seg.End.UnixMilli()
		if t0 == t1 {
			stats.Degenerate++
			continue
		}
		y0 := seg.Start.Price
		y1 := seg.End.Price
		if !finite(y0) || !finite(y1) {
			stats.Invalid++
			continue
		}
		slope := (y1 - y0) / float64(t1-t0)
		out = append(out, CompiledSegment{
			Category:    seg.Category,
			StartTimeMs: t0,
			EndTimeMs:   maxMs(t0, t1),
			Slope:       slope,
			Intercept:   y0 - slope*float64(t0),
		})
	}
	stats.Compiled = len(out)
	return out, stats
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func maxMs(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
