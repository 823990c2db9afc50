// Package broadcast pushes alert messages to live WebSocket subscribers.
// The hub tolerates zero subscribers and drops any subscriber whose send
// fails, without aborting the rest of the broadcast.
package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/verdantlabs/gardenwatch/internal/types"
	"go.uber.org/zap"
)

// MessageTypeAlert is the envelope type for alert pushes.
const MessageTypeAlert = "WEATHER_ALERT"

// sendTimeout bounds one subscriber write so a stalled peer cannot hold
// up the broadcast.
const sendTimeout = 5 * time.Second

// Conn is the subset of a WebSocket connection the hub needs. The
// restserver adapts real connections; tests supply fakes.
type Conn interface {
	Write(ctx context.Context, data []byte) error
	Close() error
}

// Envelope is the wire message pushed to subscribers. Alert timestamps
// serialize as ISO-8601 through encoding/json.
type Envelope struct {
	Type string      `json:"type"`
	Data types.Alert `json:"data"`
}

// Hub tracks the live subscriber set.
type Hub struct {
	mu     sync.Mutex
	subs   map[Conn]struct{}
	logger *zap.SugaredLogger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{
		subs:   make(map[Conn]struct{}),
		logger: logger,
	}
}

// OnConnect registers a subscriber.
func (h *Hub) OnConnect(c Conn) {
	h.mu.Lock()
	h.subs[c] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	h.logger.Infof("subscriber connected (%d active)", n)
}

// OnDisconnect removes a subscriber, if present.
func (h *Hub) OnDisconnect(c Conn) {
	h.mu.Lock()
	_, present := h.subs[c]
	delete(h.subs, c)
	n := len(h.subs)
	h.mu.Unlock()
	if present {
		h.logger.Infof("subscriber disconnected (%d active)", n)
	}
}

// SubscriberCount returns the number of live subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Broadcast serializes the alert and sends it to every subscriber
// independently. A failed send drops that subscriber. An empty subscriber
// set is a successful no-op.
func (h *Hub) Broadcast(alert types.Alert) {
	h.mu.Lock()
	targets := make([]Conn, 0, len(h.subs))
	for c := range h.subs {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	if len(targets) == 0 {
		return
	}

	payload, err := json.Marshal(Envelope{Type: MessageTypeAlert, Data: alert})
	if err != nil {
		h.logger.Errorf("failed to serialize alert %s for broadcast: %v", alert.AlertID, err)
		return
	}

	for _, c := range targets {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		err := c.Write(ctx, payload)
		cancel()
		if err != nil {
			h.logger.Warnf("dropping subscriber after failed send: %v", err)
			h.OnDisconnect(c)
			c.Close()
		}
	}
}

// CloseAll disconnects every subscriber; used during shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	targets := make([]Conn, 0, len(h.subs))
	for c := range h.subs {
		targets = append(targets, c)
	}
	h.subs = make(map[Conn]struct{})
	h.mu.Unlock()

	for _, c := range targets {
		c.Close()
	}
}
