package trendline

import (
	"math"
	"testing"
	"time"

	"trend-overlayv1/internal/model"
)

func seg(cat model.Category, t0 time.Time, p0 float64, t1 time.Time, p1 float64) model.Segment {
	return model.Segment{
		Category: cat,
		Start:    model.AnchorPoint{TS: t0, Price: p0},
		End:      model.AnchorPoint{TS: t1, Price: p1},
	}
}

var base = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func TestCompile_RoundTripAtAnchors(t *testing.T) {
	segments := []model.Segment{
		seg(model.Resistance, base, 100.0, base.Add(48*time.Hour), 110.0),
		seg(model.Support, base.Add(time.Hour), 95.5, base.Add(30*time.Hour), 92.25),
		seg(model.Resistance, base, 50.0, base.Add(time.Millisecond), 50.5),
	}

	compiled, stats := Compile(segments)
	if stats.Compiled != len(segments) {
		t.Fatalf("expected %d compiled, got %d", len(segments), stats.Compiled)
	}

	// Evaluating the line at its own anchor times must reproduce the anchor
	// prices within float tolerance.
	for i, cs := range compiled {
		raw := segments[i]
		atStart := ValueAt(cs, raw.Start.UnixMilli())
		atEnd := ValueAt(cs, raw.End.UnixMilli())
		if math.Abs(atStart-raw.Start.Price) > 1e-6 {
			t.Errorf("segment %d: start anchor %.6f, projected %.6f", i, raw.Start.Price, atStart)
		}
		if math.Abs(atEnd-raw.End.Price) > 1e-6 {
			t.Errorf("segment %d: end anchor %.6f, projected %.6f", i, raw.End.Price, atEnd)
		}
	}
}

func TestCompile_DropsDegenerateSegments(t *testing.T) {
	sameMs := base.Add(5 * time.Hour)
	segments := []model.Segment{
		seg(model.Support, base, 10, base.Add(time.Hour), 12),
		// zero time span, vertical, must be excluded
		seg(model.Support, sameMs, 10, sameMs, 99),
		// sub-millisecond span collapses to the same millisecond
		seg(model.Support, sameMs, 10, sameMs.Add(400*time.Microsecond), 11),
		seg(model.Support, base.Add(2*time.Hour), 11, base.Add(3*time.Hour), 13),
	}

	compiled, stats := Compile(segments)
	if len(compiled) != 2 {
		t.Fatalf("expected 2 compiled segments, got %d", len(compiled))
	}
	if stats.Degenerate != 2 {
		t.Errorf("expected 2 degenerate skips, got %d", stats.Degenerate)
	}
	// compiled <= raw, and the missing ones are exactly the degenerates
	if stats.Compiled+stats.Degenerate+stats.Invalid != len(segments) {
		t.Errorf("stats do not account for all inputs: %+v", stats)
	}
}

func TestCompile_DropsNonFiniteAnchors(t *testing.T) {
	segments := []model.Segment{
		seg(model.Resistance, base, math.NaN(), base.Add(time.Hour), 10),
		seg(model.Resistance, base, 10, base.Add(time.Hour), math.Inf(1)),
		seg(model.Resistance, base, 10, base.Add(time.Hour), 11),
	}

	compiled, stats := Compile(segments)
	if len(compiled) != 1 {
		t.Fatalf("expected 1 compiled segment, got %d", len(compiled))
	}
	if stats.Invalid != 2 {
		t.Errorf("expected 2 invalid skips, got %d", stats.Invalid)
	}
}

func TestCompile_EndTimeIsLaterAnchor(t *testing.T) {
	// anchors given end-first; EndTimeMs must still be the later one
	segments := []model.Segment{
		seg(model.Support, base.Add(10*time.Hour), 20, base, 10),
	}
	compiled, _ := Compile(segments)
	if len(compiled) != 1 {
		t.Fatalf("expected 1 compiled segment, got %d", len(compiled))
	}
	if compiled[0].EndTimeMs != base.Add(10*time.Hour).UnixMilli() {
		t.Errorf("EndTimeMs should be the later anchor, got %d", compiled[0].EndTimeMs)
	}
}
