package gateway

import (
	"encoding/json"
	"log/slog"
	"time"

	"trend-overlayv1/internal/model"

	"github.com/gorilla/websocket"
)

// Client represents a single WebSocket peer (one charting host).
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

			// Write coalescing: batch queued replies into one frame with
			// newline separators. Pointer events arrive per pixel, so the
			// queue fills fast on slow links.
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
		slog.Info("ws client disconnected")
	}()

	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var req CursorMsg
		if err := json.Unmarshal(msg, &req); err != nil {
			c.sendError("", "invalid message: "+err.Error())
			continue
		}

		switch req.Type {
		case "CURSOR":
			if c.hub.Metrics != nil {
				c.hub.Metrics.CursorMsgsTotal.Inc()
			}
			payload := c.hub.Svc.Query(model.QueryEvent{
				TimeMs:   req.TimeMs,
				Observed: req.Observed,
			})
			reply, _ := json.Marshal(OverlayMsg{
				Type:            "OVERLAY",
				ReqID:           req.ReqID,
				Observed:        payload.Observed,
				ResistanceDelta: payload.ResistanceDelta,
				SupportDelta:    payload.SupportDelta,
			})
			select {
			case c.send <- reply:
			default:
				// superseded by the next pointer event anyway
			}

		default:
			c.sendError(req.ReqID, "unknown message type: "+req.Type)
		}
	}
}

func (c *Client) sendError(reqID, msg string) {
	envelope, _ := json.Marshal(ErrorMsg{Type: "ERROR", ReqID: reqID, Error: msg})
	select {
	case c.send <- envelope:
	default:
	}
}
