// Package realtime provides the duplex text-message channels the gateway
// uses: an outbound-dialed client channel per logical topic and a hosted
// hub for the spatial broadcast topic.
package realtime

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const dialTimeout = 10 * time.Second

// Channel is a cancelable stream of inbound text frames from a websocket
// endpoint. Connection failures surface as stream errors, never as
// synchronous panics or errors from Connect.
type Channel struct {
	url    string
	logger zerolog.Logger

	messages chan string
	done     chan struct{}

	closeOnce sync.Once

	mu   sync.Mutex
	conn *websocket.Conn
	err  error
}

// Connect dials endpointURL in the background and returns the channel
// immediately. Each inbound text frame yields one string on Messages.
// The channel performs no automatic reconnection; that policy belongs to
// the caller.
func Connect(endpointURL string, logger zerolog.Logger) *Channel {
	c := &Channel{
		url:      endpointURL,
		logger:   logger,
		messages: make(chan string, 32),
		done:     make(chan struct{}),
	}
	go c.run()
	return c
}

func (c *Channel) run() {
	defer close(c.messages)

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		c.fail(fmt.Errorf("failed to connect to %s: %w", c.url, err))
		return
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	// Close may have raced the dial; honor it
	select {
	case <-c.done:
		conn.Close()
		return
	default:
	}

	c.logger.Info().Str("url", c.url).Msg("Realtime channel connected")

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				// Caller closed; ended normally
			default:
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.logger.Info().Str("url", c.url).Msg("Realtime channel closed by peer")
				} else {
					c.fail(fmt.Errorf("channel read error: %w", err))
				}
			}
			return
		}

		if msgType != websocket.TextMessage {
			continue
		}

		select {
		case c.messages <- string(payload):
		case <-c.done:
			return
		}
	}
}

func (c *Channel) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

// Messages returns the inbound frame channel. It is closed when the
// channel ends for any reason.
func (c *Channel) Messages() <-chan string {
	return c.messages
}

// Err reports why the channel ended. Nil means a normal close.
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Send writes one text frame to the peer.
func (c *Channel) Send(payload string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("channel is not connected")
	}
	return conn.WriteMessage(websocket.TextMessage, []byte(payload))
}

// Close closes the underlying connection exactly once. Safe to call
// multiple times and concurrently with delivery; no further messages are
// delivered after the read loop observes the close.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
	})
}
