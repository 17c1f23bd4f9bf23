package model

import "context"

// ── Storage Port Interfaces ──
// These interfaces decouple the overlay service and the loader tool from
// concrete storage implementations (SQLite, Redis). Each implementation
// satisfies one or more of these interfaces.

// SegmentWriter persists detection results and candle history per dataset.
type SegmentWriter interface {
	// WriteSegments replaces the stored segment set for set.Dataset.
	WriteSegments(ctx context.Context, set *SegmentSet) error

	// WriteCandles inserts candle history in batched transactions.
	WriteCandles(ctx context.Context, candles []Candle) error

	// Close releases underlying resources.
	Close() error
}

// SegmentReader loads detection results and candle history for serving.
type SegmentReader interface {
	// ReadSegments loads the stored segment set for a dataset.
	// Returns nil, nil if the dataset has no stored segments.
	ReadSegments(ctx context.Context, dataset string) (*SegmentSet, error)

	// ReadCandles loads candles for a dataset ordered by timestamp ascending.
	ReadCandles(ctx context.Context, dataset string, limit int) ([]Candle, error)

	// Close releases underlying resources.
	Close() error
}

// SegmentPublisher caches the latest segment set and notifies running
// servers that a dataset was updated.
type SegmentPublisher interface {
	// PublishSegments caches the set and notifies subscribers.
	PublishSegments(ctx context.Context, set *SegmentSet) error

	// Close releases underlying resources.
	Close() error
}

// SegmentSubscriber receives dataset-update notifications and reads the
// cached latest set.
type SegmentSubscriber interface {
	// LatestSegments returns the cached set for a dataset, or nil, nil if
	// the cache holds none.
	LatestSegments(ctx context.Context, dataset string) (*SegmentSet, error)

	// SubscribeUpdates delivers dataset names on out whenever a new set is
	// published. Blocks until ctx is cancelled.
	SubscribeUpdates(ctx context.Context, out chan<- string) error

	// Close releases underlying resources.
	Close() error
}
