package trendline

import (
	"testing"

	"trend-overlayv1/internal/model"
)

func compiledAt(endMs int64, intercept float64) CompiledSegment {
	return CompiledSegment{
		Category:    model.Support,
		StartTimeMs: endMs - 1000,
		EndTimeMs:   endMs,
		Slope:       0,
		Intercept:   intercept,
	}
}

func TestIndex_EmptyHasNoMatch(t *testing.T) {
	idx := NewIndex(nil)
	if _, ok := idx.MostRecentAt(1_000_000); ok {
		t.Fatal("empty index must return no match")
	}
}

func TestIndex_QueryBeforeAllSegments(t *testing.T) {
	idx := NewIndex([]CompiledSegment{
		compiledAt(5000, 1),
		compiledAt(9000, 2),
	})
	if _, ok := idx.MostRecentAt(4999); ok {
		t.Fatal("query earlier than every EndTimeMs must return no match")
	}
}

func TestIndex_InclusiveBoundary(t *testing.T) {
	idx := NewIndex([]CompiledSegment{
		compiledAt(5000, 1),
		compiledAt(9000, 2),
	})
	seg, ok := idx.MostRecentAt(5000)
	if !ok {
		t.Fatal("query exactly at EndTimeMs must match")
	}
	if seg.EndTimeMs != 5000 {
		t.Errorf("expected segment ending at 5000, got %d", seg.EndTimeMs)
	}
}

func TestIndex_PicksGreatestEndTime(t *testing.T) {
	// construction order deliberately unsorted
	idx := NewIndex([]CompiledSegment{
		compiledAt(9000, 2),
		compiledAt(3000, 1),
		compiledAt(7000, 3),
	})
	seg, ok := idx.MostRecentAt(8000)
	if !ok {
		t.Fatal("expected a match at 8000")
	}
	if seg.EndTimeMs != 7000 {
		t.Errorf("expected segment ending at 7000, got %d", seg.EndTimeMs)
	}
}

func TestIndex_TieBreakIsDeterministic(t *testing.T) {
	first := compiledAt(5000, 1.0)
	second := compiledAt(5000, 2.0)
	idx := NewIndex([]CompiledSegment{first, second})

	// equal EndTimeMs: the segment appearing last in construction order wins,
	// and repeated queries agree
	for i := 0; i < 10; i++ {
		seg, ok := idx.MostRecentAt(5000)
		if !ok {
			t.Fatal("expected a match at the tied end time")
		}
		if seg.Intercept != 2.0 {
			t.Fatalf("query %d: tie-break picked intercept %.1f, want 2.0 (last constructed)", i, seg.Intercept)
		}
	}
}

func TestIndex_DoesNotAliasInput(t *testing.T) {
	in := []CompiledSegment{compiledAt(5000, 1)}
	idx := NewIndex(in)
	in[0].Intercept = 99

	seg, _ := idx.MostRecentAt(5000)
	if seg.Intercept != 1 {
		t.Error("index must copy its input, not alias it")
	}
}
