package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"trend-overlayv1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	latestKeyPrefix = "segments:latest:"
	updatesChannel  = "pub:segments"

	defaultLatestTTL = 24 * time.Hour
)

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Writer caches segment sets and notifies running servers of dataset updates.
type Writer struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

// New creates a new Redis Writer and pings the server.
func New(cfg WriterConfig) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	slog.Info("redis connected", "addr", cfg.Addr)
	return &Writer{client: client}, nil
}

// PublishSegments caches the set under segments:latest:<dataset> and
// publishes the dataset name on the update channel so overlay servers reload.
func (w *Writer) PublishSegments(ctx context.Context, set *model.SegmentSet) error {
	payload := set.JSON()

	if err := w.client.Set(ctx, latestKeyPrefix+set.Dataset, payload, defaultLatestTTL).Err(); err != nil {
		return fmt.Errorf("redis set latest segments: %w", err)
	}
	if err := w.client.Publish(ctx, updatesChannel, set.Dataset).Err(); err != nil {
		return fmt.Errorf("redis publish segment update: %w", err)
	}

	slog.Info("segment set published", "dataset", set.Dataset, "segments", len(set.Segments))
	return nil
}

// Close releases the client.
func (w *Writer) Close() error {
	return w.client.Close()
}
