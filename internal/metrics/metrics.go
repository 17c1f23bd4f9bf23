package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the overlay engine.
type Metrics struct {
	QueriesTotal    prometheus.Counter
	CursorMsgsTotal prometheus.Counter
	QueryDur        prometheus.Histogram

	SegmentsCompiled prometheus.Counter
	SegmentsSkipped  *prometheus.CounterVec // labels: reason=degenerate|invalid
	SegmentsIndexed  *prometheus.GaugeVec   // labels: category
	DatasetReloads   prometheus.Counter

	WSClients prometheus.Gauge
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		QueriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "overlay_queries_total",
			Help: "Total cursor queries answered (WS and REST)",
		}),
		CursorMsgsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "overlay_ws_cursor_msgs_total",
			Help: "Total CURSOR messages received over WebSocket",
		}),
		QueryDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "overlay_query_duration_seconds",
			Help:    "Cursor query latency (index lookup + projection + delta)",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001},
		}),
		SegmentsCompiled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "overlay_segments_compiled_total",
			Help: "Total segments compiled into line form",
		}),
		SegmentsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "overlay_segments_skipped_total",
			Help: "Segments excluded during compilation (by reason)",
		}, []string{"reason"}),
		SegmentsIndexed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "overlay_segments_indexed",
			Help: "Segments currently indexed (by category)",
		}, []string{"category"}),
		DatasetReloads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "overlay_dataset_reloads_total",
			Help: "Dataset reloads applied from the detection feed",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "overlay_ws_clients",
			Help: "Currently connected WebSocket clients",
		}),
	}

	prometheus.MustRegister(
		m.QueriesTotal,
		m.CursorMsgsTotal,
		m.QueryDur,
		m.SegmentsCompiled,
		m.SegmentsSkipped,
		m.SegmentsIndexed,
		m.DatasetReloads,
		m.WSClients,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	Dataset        string    `json:"dataset"`
	SegmentCount   int       `json:"segment_count"`
	LastReloadAt   time.Time `json:"last_reload_at"`

	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

// SetDataset records the active dataset and its indexed segment count.
func (h *HealthStatus) SetDataset(name string, segments int) {
	h.mu.Lock()
	h.Dataset = name
	h.SegmentCount = segments
	h.LastReloadAt = time.Now()
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	// Redis is a soft dependency (cache + update feed); SQLite holds the data.
	if !h.SQLiteOK {
		overallStatus = "unhealthy"
		httpCode = http.StatusServiceUnavailable
	} else if !h.RedisConnected {
		overallStatus = "degraded"
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		Dataset         string  `json:"dataset"`
		SegmentCount    int     `json:"segment_count"`
		LastReloadAt    string  `json:"last_reload_at"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		Dataset:         h.Dataset,
		SegmentCount:    h.SegmentCount,
		LastReloadAt:    h.LastReloadAt.Format(time.RFC3339),
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
