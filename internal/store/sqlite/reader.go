package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"trend-overlayv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Reader provides read-only access to SQLite for startup load and the
// candle/segment REST endpoints.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	slog.Info("sqlite reader opened", "path", dbPath)
	return &Reader{db: db}, nil
}

// DB returns the underlying sql.DB for health checks.
func (r *Reader) DB() *sql.DB { return r.db }

// ReadSegments loads the stored segment set for a dataset.
// Returns nil, nil if the dataset has no stored segments.
func (r *Reader) ReadSegments(ctx context.Context, dataset string) (*model.SegmentSet, error) {
	var detectedMs int64
	err := r.db.QueryRowContext(ctx,
		`SELECT detected_at FROM segment_sets WHERE dataset = ?`, dataset,
	).Scan(&detectedMs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite read segment set: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT category, start_ts, start_price, end_ts, end_price
		FROM segments
		WHERE dataset = ?
		ORDER BY end_ts ASC, rowid ASC
	`, dataset)
	if err != nil {
		return nil, fmt.Errorf("sqlite query segments: %w", err)
	}
	defer rows.Close()

	set := &model.SegmentSet{
		Dataset:    dataset,
		DetectedAt: time.UnixMilli(detectedMs).UTC(),
	}
	for rows.Next() {
		var (
			category   string
			startMs    int64
			endMs      int64
			startPrice float64
			endPrice   float64
		)
		if err := rows.Scan(&category, &startMs, &startPrice, &endMs, &endPrice); err != nil {
			return nil, fmt.Errorf("sqlite scan segment: %w", err)
		}
		set.Segments = append(set.Segments, model.Segment{
			Category: model.Category(category),
			Start:    model.AnchorPoint{TS: time.UnixMilli(startMs).UTC(), Price: startPrice},
			End:      model.AnchorPoint{TS: time.UnixMilli(endMs).UTC(), Price: endPrice},
		})
	}
	return set, rows.Err()
}

// ReadCandles loads candles for a dataset ordered by timestamp ascending.
// limit <= 0 loads everything.
func (r *Reader) ReadCandles(ctx context.Context, dataset string, limit int) ([]model.Candle, error) {
	q := `
		SELECT ts, open, high, low, close
		FROM candles
		WHERE dataset = ?
		ORDER BY ts ASC
	`
	args := []interface{}{dataset}
	if limit > 0 {
		// take the newest N, still returned in ascending order
		q = `
			SELECT ts, open, high, low, close FROM (
				SELECT ts, open, high, low, close
				FROM candles
				WHERE dataset = ?
				ORDER BY ts DESC
				LIMIT ?
			) ORDER BY ts ASC
		`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query candles: %w", err)
	}
	defer rows.Close()

	var candles []model.Candle
	for rows.Next() {
		var c model.Candle
		var tsMs int64
		if err := rows.Scan(&tsMs, &c.Open, &c.High, &c.Low, &c.Close); err != nil {
			return nil, fmt.Errorf("sqlite scan candle: %w", err)
		}
		c.Dataset = dataset
		c.TS = time.UnixMilli(tsMs).UTC()
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
