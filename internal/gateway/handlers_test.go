package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"trend-overlayv1/internal/model"
	"trend-overlayv1/internal/overlay"
)

type stubReader struct {
	candles []model.Candle
}

func (s *stubReader) ReadSegments(ctx context.Context, dataset string) (*model.SegmentSet, error) {
	return nil, nil
}

func (s *stubReader) ReadCandles(ctx context.Context, dataset string, limit int) ([]model.Candle, error) {
	return s.candles, nil
}

func (s *stubReader) Close() error { return nil }

func newTestMux(t *testing.T) (*http.ServeMux, *overlay.Service) {
	t.Helper()

	svc := overlay.NewService(nil)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	svc.Load(&model.SegmentSet{
		Dataset: "aapl_daily",
		Segments: []model.Segment{
			{
				Category: model.Resistance,
				Start:    model.AnchorPoint{TS: base, Price: 50},
				End:      model.AnchorPoint{TS: base.Add(24 * time.Hour), Price: 50},
			},
			{
				Category: model.Support,
				Start:    model.AnchorPoint{TS: base, Price: 40},
				End:      model.AnchorPoint{TS: base.Add(20 * time.Hour), Price: 40},
			},
		},
	})

	hub := NewHub(svc, nil)
	mux := http.NewServeMux()
	RegisterRoutes(mux, hub, RouteDeps{
		Candles:      &stubReader{},
		Reload:       func(ctx context.Context) error { return nil },
		ProcessStart: time.Now(),
	})
	return mux, svc
}

func TestOverlayEndpoint(t *testing.T) {
	mux, _ := newTestMux(t)

	queryTS := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC).UnixMilli()
	req := httptest.NewRequest("GET", "/api/overlay?t_ms="+strconv.FormatInt(queryTS, 10)+"&value=52", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var payload model.DisplayPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if payload.ResistanceDelta != "+4.00%" {
		t.Errorf("resistance delta = %q, want +4.00%%", payload.ResistanceDelta)
	}
	if payload.SupportDelta != "+30.00%" {
		t.Errorf("support delta = %q, want +30.00%%", payload.SupportDelta)
	}
}

func TestOverlayEndpoint_MissingParams(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest("GET", "/api/overlay?value=52", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSegmentsEndpoint(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest("GET", "/api/segments", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var resp struct {
		Dataset  string       `json:"dataset"`
		Segments []SegmentOut `json:"segments"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if resp.Dataset != "aapl_daily" {
		t.Errorf("dataset = %q, want aapl_daily", resp.Dataset)
	}
	if len(resp.Segments) != 2 {
		t.Errorf("segments = %d, want 2", len(resp.Segments))
	}
}

func TestAdminReload_DisabledWithoutSecret(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest("POST", "/api/admin/reload", strings.NewReader(`{"passcode":"000000"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 when no TOTP secret configured", rec.Code)
	}
}
