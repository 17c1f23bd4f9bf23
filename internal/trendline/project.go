package trendline

// ValueAt evaluates the segment's line equation at an arbitrary time.
// This is unclamped linear extrapolation: the line is treated as continuing
// indefinitely past its own anchors, so any timeMs is valid.
func ValueAt(seg CompiledSegment, timeMs int64) float64 {
	return seg.Slope*float64(timeMs) + seg.Intercept
}
