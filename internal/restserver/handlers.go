package restserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/verdantlabs/gardenwatch/internal/history"
	"github.com/verdantlabs/gardenwatch/internal/types"
)

func (c *Controller) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := c.health.Check(r.Context())

	code := http.StatusOK
	if report.Status != OverallHealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, report)
}

func (c *Controller) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.metrics.Snapshot())
}

// handleAlertHistory serves the persisted alert record with optional
// filters. A degraded history store answers an empty list, not an error.
func (c *Controller) handleAlertHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := history.Filter{
		GardenID:  q.Get("gardenId"),
		AlertType: types.AlertType(q.Get("alertType")),
	}
	if v := q.Get("userId"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid userId", http.StatusBadRequest)
			return
		}
		filter.UserID = id
	}
	if v := q.Get("startDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid startDate", http.StatusBadRequest)
			return
		}
		filter.StartDate = t
	}
	if v := q.Get("endDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid endDate", http.StatusBadRequest)
			return
		}
		filter.EndDate = t
	}

	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	alerts := c.store.GetAlertHistory(r.Context(), filter, limit)
	writeJSON(w, http.StatusOK, map[string]interface{}{"alerts": alerts})
}

// handleSubscribe upgrades the connection and registers it with the
// broadcast hub. Inbound messages are read and discarded; the read loop
// exists only to notice disconnects.
func (c *Controller) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		c.logger.Warnf("websocket accept failed: %v", err)
		return
	}

	sub := &wsConn{conn: conn}
	c.hub.OnConnect(sub)

	go func() {
		defer c.hub.OnDisconnect(sub)
		for {
			if _, _, err := conn.Read(c.ctx); err != nil {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
		}
	}()
}

// wsConn adapts a coder/websocket connection to the hub's Conn interface.
type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) Write(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *wsConn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
