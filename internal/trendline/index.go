package trendline

import "sort"

// Index is an ordered, queryable collection of compiled segments for exactly
// one category. Built once per dataset; never mutated afterwards, so it is
// safe for concurrent reads without locking.
type Index struct {
	// sorted ascending by EndTimeMs; stable sort preserves construction
	// order among equal keys
	segments []CompiledSegment
}

// NewIndex builds an index from compiled segments of a single category.
// The input slice is copied; the index never aliases caller memory.
func NewIndex(compiled []CompiledSegment) *Index {
	segs := make([]CompiledSegment, len(compiled))
	copy(segs, compiled)
	sort.SliceStable(segs, func(i, j int) bool {
		return segs[i].EndTimeMs < segs[j].EndTimeMs
	})
	return &Index{segments: segs}
}

// MostRecentAt returns the segment with the greatest EndTimeMs such that
// EndTimeMs <= queryTimeMs. The boundary is inclusive: a query exactly at a
// segment's end time selects it. When several segments share the maximal
// EndTimeMs, the one appearing last in construction order wins: the stable
// sort keeps equal keys in input order and the scan below takes the last of
// the run, so repeated queries are reproducible.
// Returns ok=false when no segment qualifies (including an empty index).
func (x *Index) MostRecentAt(queryTimeMs int64) (CompiledSegment, bool) {
	// first position with EndTimeMs > query; everything before it qualifies
	i := sort.Search(len(x.segments), func(i int) bool {
		return x.segments[i].EndTimeMs > queryTimeMs
	})
	if i == 0 {
		return CompiledSegment{}, false
	}
	return x.segments[i-1], true
}

// Len returns the number of indexed segments.
func (x *Index) Len() int {
	return len(x.segments)
}

// Segments returns a copy of the indexed segments in end-time order.
func (x *Index) Segments() []CompiledSegment {
	out := make([]CompiledSegment, len(x.segments))
	copy(out, x.segments)
	return out
}
