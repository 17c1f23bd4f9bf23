package trendline

import (
	"strconv"

	"trend-overlayv1/internal/model"
)

// FormatDelta renders the signed percentage deviation of observed from
// reference: (observed-reference)/reference*100, explicit leading sign,
// two decimals. Guards, in order: no reference (ok=false), non-finite
// reference, reference exactly zero. Each resolves to the unavailable
// sentinel, never a computed number and never a panic. A non-finite result
// (e.g. NaN observed value) also degrades to the sentinel.
func FormatDelta(observed, reference float64, ok bool) string {
	if !ok || !finite(reference) || reference == 0 {
		return model.DeltaUnavailable
	}
	pct := (observed - reference) / reference * 100.0
	if !finite(pct) {
		return model.DeltaUnavailable
	}
	if pct == 0 {
		pct = 0 // fold -0 into +0.00%
	}
	if pct >= 0 {
		return "+" + strconv.FormatFloat(pct, 'f', 2, 64) + "%"
	}
	return strconv.FormatFloat(pct, 'f', 2, 64) + "%"
}
