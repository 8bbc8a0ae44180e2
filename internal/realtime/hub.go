package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/voiceflowcms/nav-gateway/internal/observability"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Outbound queue per subscriber; slow consumers drop frames rather
	// than blocking the broadcast.
	sendQueueSize = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: validate Origin against the deployed frontend host
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// subscriber is one websocket client on the broadcast topic.
type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans navigation state out to spatial topic subscribers. The topic is
// outbound-only: inbound frames from subscribers are read and discarded to
// keep the connection's control messages flowing.
type Hub struct {
	topic  string
	logger zerolog.Logger

	mu      sync.RWMutex
	clients map[*subscriber]struct{}
}

// NewHub creates a broadcast hub for the named topic
func NewHub(topic string, logger zerolog.Logger) *Hub {
	return &Hub{
		topic:   topic,
		logger:  logger,
		clients: make(map[*subscriber]struct{}),
	}
}

// Broadcast marshals v and sends it to every subscriber. Fire-and-forget,
// at-most-once: subscribers with a full queue miss the frame.
func (h *Hub) Broadcast(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal broadcast payload")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.clients {
		select {
		case sub.send <- payload:
		default:
			h.logger.Warn().Str("topic", h.topic).Msg("Subscriber queue full, dropping frame")
		}
	}
}

// SubscriberCount returns the number of connected subscribers
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades an HTTP request into a topic subscription
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	sub := &subscriber{
		conn: conn,
		send: make(chan []byte, sendQueueSize),
	}

	h.register(sub)

	go h.writePump(sub)
	go h.readPump(sub)
}

func (h *Hub) register(sub *subscriber) {
	h.mu.Lock()
	h.clients[sub] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	observability.SetSpatialSubscribers(n)
	h.logger.Info().Str("topic", h.topic).Int("subscribers", n).Msg("Subscriber registered")
}

func (h *Hub) unregister(sub *subscriber) {
	h.mu.Lock()
	if _, ok := h.clients[sub]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, sub)
	close(sub.send)
	n := len(h.clients)
	h.mu.Unlock()

	observability.SetSpatialSubscribers(n)
	h.logger.Info().Str("topic", h.topic).Int("subscribers", n).Msg("Subscriber unregistered")
}

// writePump drains the subscriber's queue and keeps the connection alive
// with periodic pings.
func (h *Hub) writePump(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames (the topic is outbound-only) and
// unregisters on disconnect.
func (h *Hub) readPump(sub *subscriber) {
	defer func() {
		h.unregister(sub)
		sub.conn.Close()
	}()

	sub.conn.SetReadLimit(4096)
	sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		sub.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Shutdown closes every subscriber connection
func (h *Hub) Shutdown(ctx context.Context) {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.clients))
	for sub := range h.clients {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		sub.conn.Close()
	}
}
