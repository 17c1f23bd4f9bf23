package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Category tags a trend-line segment as support or resistance.
type Category string

const (
	Support    Category = "support"
	Resistance Category = "resistance"
)

// Valid reports whether the category is one of the two known tags.
func (c Category) Valid() bool {
	return c == Support || c == Resistance
}

// AnchorPoint is one endpoint of a detected trend line: a timestamp and a price.
type AnchorPoint struct {
	TS    time.Time `json:"ts"`
	Price float64   `json:"price"`
}

// UnixMilli returns the anchor timestamp on the linear millisecond time base
// used by segment compilation.
func (a AnchorPoint) UnixMilli() int64 {
	return a.TS.UnixMilli()
}

// Segment is a raw trend line as produced by the external detection service:
// a category plus two anchor points. Immutable input unit; the compiler never
// modifies it, only derives from it.
type Segment struct {
	Category Category    `json:"category"`
	Start    AnchorPoint `json:"start"`
	End      AnchorPoint `json:"end"`
}

// SegmentSet is one detection result for a dataset: all raw segments of both
// categories, as published by the detection collaborator.
type SegmentSet struct {
	Dataset    string    `json:"dataset"`
	DetectedAt time.Time `json:"detected_at"`
	Segments   []Segment `json:"segments"`
}

// ByCategory splits the set into support and resistance slices.
func (s *SegmentSet) ByCategory() (support, resistance []Segment) {
	for _, seg := range s.Segments {
		switch seg.Category {
		case Support:
			support = append(support, seg)
		case Resistance:
			resistance = append(resistance, seg)
		}
	}
	return support, resistance
}

// JSON returns the JSON-encoded set (ignoring errors for hot-path usage).
func (s *SegmentSet) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}

// ParseSegmentSet decodes a detection result payload.
func ParseSegmentSet(data []byte) (*SegmentSet, error) {
	var set SegmentSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse segment set: %w", err)
	}
	for i, seg := range set.Segments {
		if !seg.Category.Valid() {
			return nil, fmt.Errorf("parse segment set: segment %d has unknown category %q", i, seg.Category)
		}
	}
	return &set, nil
}
