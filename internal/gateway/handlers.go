package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"trend-overlayv1/internal/model"

	"github.com/gorilla/websocket"
	"github.com/pquerna/otp/totp"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// RouteDeps carries the collaborators the REST surface needs beyond the hub.
type RouteDeps struct {
	Candles model.SegmentReader

	// Reload re-reads the dataset from storage, swaps it into the overlay
	// service, and broadcasts the new segments. Wired in main.
	Reload func(ctx context.Context) error

	// AdminTOTPSecret gates /api/admin/reload. Empty disables the endpoint.
	AdminTOTPSecret string

	ProcessStart time.Time
}

// RegisterRoutes registers all HTTP routes on the provided mux.
func RegisterRoutes(mux *http.ServeMux, hub *Hub, deps RouteDeps) {
	// WebSocket endpoint for the charting host
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("ws upgrade failed", "err", err)
			return
		}
		hub.HandleWSRequest(conn)
	})

	// REST: one-shot cursor query, for hosts without a WS connection
	mux.HandleFunc("/api/overlay", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		tMs, err := strconv.ParseInt(r.URL.Query().Get("t_ms"), 10, 64)
		if err != nil {
			http.Error(w, `{"error":"t_ms is required"}`, http.StatusBadRequest)
			return
		}
		observed, err := strconv.ParseFloat(r.URL.Query().Get("value"), 64)
		if err != nil {
			http.Error(w, `{"error":"value is required"}`, http.StatusBadRequest)
			return
		}

		payload := hub.Svc.Query(model.QueryEvent{TimeMs: tMs, Observed: observed})
		json.NewEncoder(w).Encode(payload)
	})

	// REST: active compiled segments
	mux.HandleFunc("/api/segments", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"dataset":  hub.Svc.Dataset(),
			"segments": segmentsOut(hub.Svc.Segments()),
		})
	})

	// REST: candle history for the active dataset
	mux.HandleFunc("/api/candles", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		limit := 500
		if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 5000 {
			limit = l
		}

		candles, err := deps.Candles.ReadCandles(r.Context(), hub.Svc.Dataset(), limit)
		if err != nil {
			slog.Error("candle read failed", "err", err)
			json.NewEncoder(w).Encode([]CandleOut{})
			return
		}

		out := make([]CandleOut, 0, len(candles))
		for _, c := range candles {
			out = append(out, CandleOut{
				TS:    c.TS.Format(time.RFC3339),
				Open:  c.Open,
				High:  c.High,
				Low:   c.Low,
				Close: c.Close,
			})
		}
		json.NewEncoder(w).Encode(out)
	})

	// REST: admin dataset reload, TOTP-gated
	mux.HandleFunc("/api/admin/reload", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != "POST" {
			http.Error(w, `{"error":"POST required"}`, http.StatusMethodNotAllowed)
			return
		}
		if deps.AdminTOTPSecret == "" {
			http.Error(w, `{"error":"admin reload disabled"}`, http.StatusServiceUnavailable)
			return
		}

		var req struct {
			Passcode string `json:"passcode"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
			return
		}
		if !totp.Validate(req.Passcode, deps.AdminTOTPSecret) {
			slog.Warn("admin reload rejected: bad passcode")
			http.Error(w, `{"error":"invalid passcode"}`, http.StatusUnauthorized)
			return
		}

		if err := deps.Reload(r.Context()); err != nil {
			slog.Error("admin reload failed", "err", err)
			http.Error(w, `{"error":"reload failed"}`, http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Health endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		p50, p95, p99 := hub.Svc.LatencyPercentiles()
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":       "ok",
			"dataset":      hub.Svc.Dataset(),
			"segments":     hub.Svc.SegmentCount(),
			"ws_clients":   hub.ClientCount(),
			"query_p50_ms": p50,
			"query_p95_ms": p95,
			"query_p99_ms": p99,
			"uptime_sec":   int64(time.Since(deps.ProcessStart).Seconds()),
			"ts":           time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
