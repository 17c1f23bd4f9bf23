package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"trend-overlayv1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

// Reader consumes the segment cache and dataset-update notifications.
type Reader struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (r *Reader) Client() *goredis.Client { return r.client }

// NewReader creates a Redis Reader and pings the server.
func NewReader(cfg WriterConfig) (*Reader, error) {
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

	slog.Info("redis reader connected", "addr", cfg.Addr)
	return &Reader{client: client}, nil
}

// LatestSegments returns the cached set for a dataset, or nil, nil on a miss.
func (r *Reader) LatestSegments(ctx context.Context, dataset string) (*model.SegmentSet, error) {
	data, err := r.client.Get(ctx, latestKeyPrefix+dataset).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get latest segments: %w", err)
	}
	return model.ParseSegmentSet(data)
}

// SubscribeUpdates delivers dataset names on out whenever a new segment set
// is published. Blocks until ctx is cancelled.
func (r *Reader) SubscribeUpdates(ctx context.Context, out chan<- string) error {
	sub := r.client.Subscribe(ctx, updatesChannel)
	defer sub.Close()

	// Force the subscription to be established before we report readiness.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", updatesChannel, err)
	}
	slog.Info("subscribed to segment updates", "channel", updatesChannel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			select {
			case out <- msg.Payload:
			default:
				// A pending reload already queued supersedes nothing; the
				// server re-reads the latest set either way.
				slog.Warn("dropping segment update, reload queue full", "dataset", msg.Payload)
			}
		}
	}
}

// Close releases the client.
func (r *Reader) Close() error {
	return r.client.Close()
}
