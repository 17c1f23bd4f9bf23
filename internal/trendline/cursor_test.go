package trendline

import (
	"bytes"
	"testing"
	"time"

	"trend-overlayv1/internal/model"
)

func TestHandleQuery_EndToEnd(t *testing.T) {
	// Resistance line concludes at t=100ms projecting 50 at the query time;
	// support concludes at t=90ms projecting 40. Flat lines keep the
	// projected values exact.
	resistance := NewIndex([]CompiledSegment{
		{Category: model.Resistance, StartTimeMs: 10, EndTimeMs: 100, Slope: 0, Intercept: 50},
	})
	support := NewIndex([]CompiledSegment{
		{Category: model.Support, StartTimeMs: 10, EndTimeMs: 90, Slope: 0, Intercept: 40},
	})

	payload := HandleQuery(model.QueryEvent{TimeMs: 105, Observed: 52}, support, resistance)

	if payload.ResistanceDelta != "+4.00%" {
		t.Errorf("resistance delta = %q, want +4.00%%", payload.ResistanceDelta)
	}
	if payload.SupportDelta != "+30.00%" {
		t.Errorf("support delta = %q, want +30.00%%", payload.SupportDelta)
	}
	if payload.Observed != 52 {
		t.Errorf("observed echoed as %v, want 52", payload.Observed)
	}
}

func TestHandleQuery_ProjectsBeyondAnchors(t *testing.T) {
	// Rising resistance: 100 at t=0, 110 at t=10_000. The slope continues
	// indefinitely, so at t=20_000 the reference is 120.
	compiled, _ := Compile([]model.Segment{
		seg(model.Resistance, time.UnixMilli(0).UTC(), 100, time.UnixMilli(10_000).UTC(), 110),
	})
	resistance := NewIndex(compiled)
	support := NewIndex(nil)

	payload := HandleQuery(model.QueryEvent{TimeMs: 20_000, Observed: 126}, support, resistance)
	if payload.ResistanceDelta != "+5.00%" {
		t.Errorf("resistance delta = %q, want +5.00%%", payload.ResistanceDelta)
	}
	if payload.SupportDelta != model.DeltaUnavailable {
		t.Errorf("support delta = %q, want sentinel for empty index", payload.SupportDelta)
	}
}

func TestHandleQuery_NoQualifyingSegments(t *testing.T) {
	resistance := NewIndex([]CompiledSegment{
		{Category: model.Resistance, StartTimeMs: 500, EndTimeMs: 1000, Slope: 0, Intercept: 50},
	})
	support := NewIndex(nil)

	// query earlier than every end time
	payload := HandleQuery(model.QueryEvent{TimeMs: 400, Observed: 52}, support, resistance)
	if payload.ResistanceDelta != model.DeltaUnavailable {
		t.Errorf("resistance delta = %q, want sentinel", payload.ResistanceDelta)
	}
	if payload.SupportDelta != model.DeltaUnavailable {
		t.Errorf("support delta = %q, want sentinel", payload.SupportDelta)
	}
}

func TestHandleQuery_Idempotent(t *testing.T) {
	compiled, _ := Compile([]model.Segment{
		seg(model.Support, base, 95.5, base.Add(30*time.Hour), 92.25),
		seg(model.Resistance, base, 100.0, base.Add(48*time.Hour), 110.0),
	})
	var supSegs, resSegs []CompiledSegment
	for _, cs := range compiled {
		if cs.Category == model.Support {
			supSegs = append(supSegs, cs)
		} else {
			resSegs = append(resSegs, cs)
		}
	}
	support := NewIndex(supSegs)
	resistance := NewIndex(resSegs)

	ev := model.QueryEvent{TimeMs: base.Add(72 * time.Hour).UnixMilli(), Observed: 104.37}
	first := HandleQuery(ev, support, resistance)
	second := HandleQuery(ev, support, resistance)

	if !bytes.Equal(first.JSON(), second.JSON()) {
		t.Errorf("payloads differ across identical invocations:\n%s\n%s", first.JSON(), second.JSON())
	}
}
