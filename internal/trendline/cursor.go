package trendline

import "trend-overlayv1/internal/model"

// HandleQuery maps one pointer-movement sample through both category indexes
// to a display payload: for each category, select the most recently concluded
// segment, project its line to the query time, and compute the signed delta
// against the observed value. Stateless and deterministic: identical inputs
// produce identical payloads, and nothing is cached or mutated.
func HandleQuery(ev model.QueryEvent, support, resistance *Index) model.DisplayPayload {
	return model.DisplayPayload{
		Observed:        ev.Observed,
		ResistanceDelta: deltaFor(ev, resistance),
		SupportDelta:    deltaFor(ev, support),
	}
}

func deltaFor(ev model.QueryEvent, idx *Index) string {
	seg, ok := idx.MostRecentAt(ev.TimeMs)
	if !ok {
		return model.DeltaUnavailable
	}
	return FormatDelta(ev.Observed, ValueAt(seg, ev.TimeMs), true)
}
