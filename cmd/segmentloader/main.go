// Command segmentloader stands at the detection boundary: it takes a
// detection result (segment JSON) and optional candle history (CSV), persists
// both to SQLite, and publishes the segment set through Redis so running
// overlay servers pick it up without a restart.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"trend-overlayv1/config"
	"trend-overlayv1/internal/logger"
	"trend-overlayv1/internal/model"
	redisstore "trend-overlayv1/internal/store/redis"
	"trend-overlayv1/internal/store/sqlite"
)

func main() {
	var (
		segmentsPath = flag.String("segments", "", "path to detection result JSON (required)")
		candlesPath  = flag.String("candles", "", "path to candle CSV (Date,Open,High,Low,Close)")
		dataset      = flag.String("dataset", "", "dataset name override")
	)
	flag.Parse()

	cfg := config.Load()
	logger.Init("segmentloader", logger.ParseLevel(cfg.LogLevel))

	if *segmentsPath == "" {
		fmt.Fprintln(os.Stderr, "usage: segmentloader -segments result.json [-candles data.csv] [-dataset name]")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	set, err := readSegmentFile(*segmentsPath)
	if err != nil {
		slog.Error("segment file read failed", "err", err)
		os.Exit(1)
	}
	if *dataset != "" {
		set.Dataset = *dataset
	}
	if set.Dataset == "" {
		set.Dataset = cfg.Dataset
	}
	if set.DetectedAt.IsZero() {
		set.DetectedAt = time.Now().UTC()
	}
	slog.Info("segments parsed", "dataset", set.Dataset, "count", len(set.Segments))

	store, err := sqlite.New(sqlite.WriterConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		slog.Error("sqlite open failed", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.WriteSegments(ctx, set); err != nil {
		slog.Error("segment write failed", "err", err)
		os.Exit(1)
	}

	if *candlesPath != "" {
		candles, err := readCandleCSV(*candlesPath, set.Dataset)
		if err != nil {
			slog.Error("candle CSV read failed", "err", err)
			os.Exit(1)
		}
		if err := store.WriteCandles(ctx, candles); err != nil {
			slog.Error("candle write failed", "err", err)
			os.Exit(1)
		}
		slog.Info("candles stored", "count", len(candles))
	}

	// Publish through Redis so running servers hot-reload. Persisting to
	// SQLite already succeeded, so cache failure only delays pickup.
	cache, err := redisstore.New(redisstore.WriterConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		slog.Warn("redis unavailable, servers will load on next restart", "err", err)
		return
	}
	defer cache.Close()

	if err := cache.PublishSegments(ctx, set); err != nil {
		slog.Warn("segment publish failed", "err", err)
		return
	}
	slog.Info("done", "dataset", set.Dataset)
}

func readSegmentFile(path string) (*model.SegmentSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return model.ParseSegmentSet(data)
}

// readCandleCSV parses OHLC history exported by the data-fetch service.
// Expected header: Date,Open,High,Low,Close (extra columns ignored).
func readCandleCSV(path, dataset string) ([]model.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"date", "open", "high", "low", "close"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("csv missing column %q", required)
		}
	}

	var candles []model.Candle
	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		line++

		ts, err := parseDate(rec[col["date"]])
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		c := model.Candle{Dataset: dataset, TS: ts}
		for _, field := range []struct {
			name string
			dst  *float64
		}{
			{"open", &c.Open},
			{"high", &c.High},
			{"low", &c.Low},
			{"close", &c.Close},
		} {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[col[field.name]]), 64)
			if err != nil {
				return nil, fmt.Errorf("csv line %d, column %s: %w", line, field.name, err)
			}
			*field.dst = v
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
