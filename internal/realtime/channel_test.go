package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// echoServer upgrades connections and sends the given frames.
func frameServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		// Wait for the client to close
		conn.ReadMessage()
	}))
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func TestChannel_DeliversFrames(t *testing.T) {
	srv := frameServer(t, []string{"one", "two", "three"})
	defer srv.Close()

	ch := Connect(wsURL(srv), zerolog.Nop())
	defer ch.Close()

	var got []string
	for msg := range ch.Messages() {
		got = append(got, msg)
	}

	if len(got) != 3 || got[0] != "one" || got[2] != "three" {
		t.Errorf("Expected frames [one two three], got %v", got)
	}

	if ch.Err() != nil {
		t.Errorf("Expected nil error after peer close, got %v", ch.Err())
	}
}

func TestChannel_DialFailureSurfacesAsStreamError(t *testing.T) {
	ch := Connect("ws://127.0.0.1:1/ws/voice", zerolog.Nop())
	defer ch.Close()

	select {
	case _, ok := <-ch.Messages():
		if ok {
			t.Error("Expected no messages from failed dial")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for channel to fail")
	}

	if ch.Err() == nil {
		t.Error("Expected connection failure to surface via Err()")
	}
}

func TestChannel_CloseIsIdempotent(t *testing.T) {
	srv := frameServer(t, nil)
	defer srv.Close()

	ch := Connect(wsURL(srv), zerolog.Nop())

	ch.Close()
	ch.Close() // must not panic or double-close

	// Channel ends without error after caller close
	for range ch.Messages() {
	}
	if ch.Err() != nil {
		t.Errorf("Expected nil error after caller close, got %v", ch.Err())
	}
}

func TestChannel_NoDeliveryAfterClose(t *testing.T) {
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ready := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		<-ready
		// Keep writing after the client has closed; none of these may be
		// delivered
		for i := 0; i < 20; i++ {
			conn.WriteMessage(websocket.TextMessage, []byte("late"))
		}
	}))
	defer srv.Close()

	ch := Connect(wsURL(srv), zerolog.Nop())

	// Wait for connect, then close before any frame is sent
	deadline := time.After(5 * time.Second)
	for ch.Send("hello") != nil {
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for connection")
		case <-time.After(10 * time.Millisecond):
		}
	}

	ch.Close()
	close(ready)

	for msg := range ch.Messages() {
		t.Errorf("Received message %q after Close", msg)
	}
}
