package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trend-overlayv1/config"
	"trend-overlayv1/internal/gateway"
	"trend-overlayv1/internal/logger"
	"trend-overlayv1/internal/metrics"
	"trend-overlayv1/internal/model"
	"trend-overlayv1/internal/notification"
	"trend-overlayv1/internal/overlay"
	redisstore "trend-overlayv1/internal/store/redis"
	"trend-overlayv1/internal/store/sqlite"
)

var processStart = time.Now()

func main() {
	cfg := config.Load()
	logger.Init("overlayserver", logger.ParseLevel(cfg.LogLevel))
	slog.Info("starting", "dataset", cfg.Dataset, "gateway", cfg.GatewayAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// SQLite holds the authoritative dataset
	store, err := sqlite.NewReader(cfg.SQLitePath)
	if err != nil {
		slog.Error("sqlite open failed", "err", err)
		os.Exit(1)
	}
	defer store.Close()
	health.SetSQLiteOK(true)

	// Redis is a soft dependency: segment cache + reload notifications
	cache, err := redisstore.NewReader(redisstore.WriterConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		slog.Warn("redis unavailable, running without live reloads", "err", err)
		cache = nil
	} else {
		defer cache.Close()
		health.SetRedisConnected(true)
	}

	var notifier notification.Notifier = notification.NewLogNotifier()
	if cfg.WebhookURL != "" {
		notifier = notification.NewWebhookNotifier(cfg.WebhookURL)
	}

	svc := overlay.NewService(m)
	hub := gateway.NewHub(svc, m)

	reload := func(ctx context.Context) error {
		set, err := loadSegments(ctx, store, cache, cfg.Dataset)
		if err != nil {
			return err
		}
		if set == nil {
			return fmt.Errorf("dataset %q has no stored segments", cfg.Dataset)
		}
		svc.Load(set)
		health.SetDataset(set.Dataset, svc.SegmentCount())
		hub.BroadcastSegments()
		slog.Info("dataset loaded", "dataset", set.Dataset, "segments", svc.SegmentCount())
		return nil
	}

	if err := reload(ctx); err != nil {
		// Not fatal: the service answers with sentinels until segments arrive.
		slog.Warn("initial dataset load failed", "err", err)
	}

	if cache != nil {
		health.StartLivenessChecker(ctx, cache.Client(), store.DB(), 15*time.Second)
		go watchUpdates(ctx, cache, cfg.Dataset, reload, notifier)
	} else {
		health.StartLivenessChecker(ctx, nil, store.DB(), 15*time.Second)
	}

	mux := http.NewServeMux()
	gateway.RegisterRoutes(mux, hub, gateway.RouteDeps{
		Candles:         store,
		Reload:          reload,
		AdminTOTPSecret: cfg.AdminTOTPSecret,
		ProcessStart:    processStart,
	})

	srv := &http.Server{Addr: cfg.GatewayAddr, Handler: mux}
	go func() {
		slog.Info("gateway listening", "addr", cfg.GatewayAddr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("gateway server error", "err", err)
			cancel()
		}
	}()

	// Block until shutdown signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		slog.Info("shutdown signal received", "signal", s.String())
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
	cancel()
	slog.Info("stopped")
}

// loadSegments prefers the redis cache (freshest detection result) and falls
// back to sqlite.
func loadSegments(ctx context.Context, store *sqlite.Reader, cache *redisstore.Reader, dataset string) (*model.SegmentSet, error) {
	if cache != nil {
		set, err := cache.LatestSegments(ctx, dataset)
		if err != nil {
			slog.Warn("redis segment read failed, falling back to sqlite", "err", err)
		} else if set != nil {
			return set, nil
		}
	}
	return store.ReadSegments(ctx, dataset)
}

// watchUpdates applies dataset reloads pushed by the detection boundary.
func watchUpdates(ctx context.Context, cache *redisstore.Reader, dataset string, reload func(context.Context) error, notifier notification.Notifier) {
	updates := make(chan string, 4)
	go func() {
		if err := cache.SubscribeUpdates(ctx, updates); err != nil && ctx.Err() == nil {
			slog.Error("segment update subscription ended", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case name := <-updates:
			if name != dataset {
				slog.Debug("ignoring update for other dataset", "dataset", name)
				continue
			}
			if err := reload(ctx); err != nil {
				slog.Error("dataset reload failed", "err", err)
				notifier.Send(ctx, notification.ReloadFailure(dataset, err))
			}
		}
	}
}
