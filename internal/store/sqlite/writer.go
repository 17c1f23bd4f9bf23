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

const candleBatchSize = 500

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/overlay.db"
}

// Writer persists detection results and candle history.
type Writer struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new SQLite Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single-writer discipline
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	slog.Info("sqlite opened", "path", cfg.DBPath)
	return &Writer{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS segments (
			dataset     TEXT    NOT NULL,
			category    TEXT    NOT NULL,
			start_ts    INTEGER NOT NULL,
			start_price REAL    NOT NULL,
			end_ts      INTEGER NOT NULL,
			end_price   REAL    NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_segments_dataset ON segments (dataset);

		CREATE TABLE IF NOT EXISTS segment_sets (
			dataset     TEXT    PRIMARY KEY,
			detected_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS candles (
			dataset TEXT    NOT NULL,
			ts      INTEGER NOT NULL,
			open    REAL    NOT NULL,
			high    REAL    NOT NULL,
			low     REAL    NOT NULL,
			close   REAL    NOT NULL,
			PRIMARY KEY (dataset, ts)
		);
	`)
	return err
}

// WriteSegments replaces the stored segment set for set.Dataset in a single
// transaction. Anchor timestamps are stored as milliseconds since epoch,
// the same linear time base the compiler uses.
func (w *Writer) WriteSegments(ctx context.Context, set *model.SegmentSet) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM segments WHERE dataset = ?`, set.Dataset); err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite clear segments: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO segments (dataset, category, start_ts, start_price, end_ts, end_price)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	for _, seg := range set.Segments {
		_, err := stmt.Exec(set.Dataset, string(seg.Category),
			seg.Start.UnixMilli(), seg.Start.Price,
			seg.End.UnixMilli(), seg.End.Price)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert segment: %w", err)
		}
	}

	_, err = tx.Exec(`INSERT OR REPLACE INTO segment_sets (dataset, detected_at) VALUES (?, ?)`,
		set.Dataset, set.DetectedAt.UnixMilli())
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite upsert segment set: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit segments: %w", err)
	}
	slog.Info("segments stored", "dataset", set.Dataset, "count", len(set.Segments))
	return nil
}

// WriteCandles inserts candle history in batched transactions.
func (w *Writer) WriteCandles(ctx context.Context, candles []model.Candle) error {
	for start := 0; start < len(candles); start += candleBatchSize {
		end := start + candleBatchSize
		if end > len(candles) {
			end = len(candles)
		}
		if err := w.insertCandleBatch(ctx, candles[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) insertCandleBatch(ctx context.Context, batch []model.Candle) error {
	started := time.Now()
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO candles (dataset, ts, open, high, low, close)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range batch {
		_, err := stmt.Exec(c.Dataset, c.TS.UnixMilli(), c.Open, c.High, c.Low, c.Close)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert candle: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit candles: %w", err)
	}
	slog.Debug("candle batch committed", "count", len(batch), "took", time.Since(started).String())
	return nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
