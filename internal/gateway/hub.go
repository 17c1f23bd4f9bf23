package gateway

import (
	"encoding/json"
	"log/slog"
	"sync"

	"trend-overlayv1/internal/metrics"
	"trend-overlayv1/internal/overlay"
	"trend-overlayv1/internal/trendline"

	"github.com/gorilla/websocket"
)

// Hub manages WebSocket clients for the cursor overlay. Unlike a market feed
// there is no continuous fan-out here: traffic is request/response per
// pointer event, plus one broadcast when the dataset reloads so hosts can
// redraw their lines.
type Hub struct {
	Svc     *overlay.Service
	Metrics *metrics.Metrics

	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewHub creates a Hub serving queries from the given overlay service.
func NewHub(svc *overlay.Service, m *metrics.Metrics) *Hub {
	return &Hub{
		Svc:     svc,
		Metrics: m,
		clients: make(map[*Client]bool),
	}
}

// HandleWSRequest registers an upgraded connection and starts its pumps.
func (h *Hub) HandleWSRequest(conn *websocket.Conn) {
	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}

	// Queue the current segment set before the pumps start so the host can
	// draw lines before the first reload broadcast. The channel is fresh and
	// buffered, so this cannot block, and nothing can have closed it yet.
	client.send <- h.segmentEnvelope()

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	if h.Metrics != nil {
		h.Metrics.WSClients.Set(float64(count))
	}
	slog.Info("ws client connected", "total", count)

	go client.writePump()
	go client.readPump()
}

// RemoveClient removes a client from the hub. Closing the send channel is
// safe here: the only senders left are the client's own readPump (which has
// already returned) and BroadcastSegments, which cannot hold the client once
// it is out of the map.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()
	close(c.send)

	if h.Metrics != nil {
		h.Metrics.WSClients.Set(float64(count))
	}
}

// BroadcastSegments pushes the active segment set to every connected client.
// Called after a dataset reload.
func (h *Hub) BroadcastSegments() {
	envelope := h.segmentEnvelope()

	h.mu.RLock()
	for client := range h.clients {
		select {
		case client.send <- envelope:
		default:
			// slow client; it will refetch via /api/segments
		}
	}
	h.mu.RUnlock()
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) segmentEnvelope() []byte {
	envelope, _ := json.Marshal(map[string]interface{}{
		"type":     "SEGMENTS",
		"dataset":  h.Svc.Dataset(),
		"segments": segmentsOut(h.Svc.Segments()),
	})
	return envelope
}

func segmentsOut(segs []trendline.CompiledSegment) []SegmentOut {
	out := make([]SegmentOut, len(segs))
	for i, s := range segs {
		out[i] = SegmentOut{
			Category:  string(s.Category),
			StartMs:   s.StartTimeMs,
			EndMs:     s.EndTimeMs,
			Slope:     s.Slope,
			Intercept: s.Intercept,
		}
	}
	return out
}
