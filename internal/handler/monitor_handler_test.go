package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ws "github.com/certivox/certivox-backend/internal/websocket"
)

// dialPump upgrades an httptest connection and runs the monitor pump over it,
// fed from the returned events channel.
func dialPump(t *testing.T, events chan *redis.Message) *websocket.Conn {
	t.Helper()

	h := &MonitorHandler{log: zerolog.Nop(), upgrader: buildUpgrader(nil)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		h.pump(r.Context(), conn, events, zerolog.Nop())
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestMonitorPumpConcurrentPingsAndProgress(t *testing.T) {
	events := make(chan *redis.Message)
	conn := dialPump(t, events)

	// Pings arriving while progress events are being forwarded must not
	// corrupt the connection: the pump is the only writer.
	const rounds = 50
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			if err := conn.WriteJSON(ws.RequestEnvelope{Action: ws.ActionPing}); err != nil {
				t.Errorf("write ping: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			events <- &redis.Message{Payload: `{"event":"response_scored","score":7}`}
		}
	}()

	var progress, pongs int
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for progress < rounds {
		var msg struct {
			Event ws.Event `json:"event"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read after %d progress, %d pongs: %v", progress, pongs, err)
		}
		switch msg.Event {
		case ws.EventProgress:
			progress++
		case ws.EventPong:
			pongs++
		default:
			t.Fatalf("unexpected event %q", msg.Event)
		}
	}
	wg.Wait()
}

func TestMonitorPumpRejectsUnknownAction(t *testing.T) {
	events := make(chan *redis.Message)
	conn := dialPump(t, events)

	if err := conn.WriteJSON(ws.RequestEnvelope{Action: "subscribe"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg struct {
		Event ws.Event `json:"event"`
		Error string   `json:"error"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Event != ws.EventError || msg.Error == "" {
		t.Errorf("got event %q error %q, want an error event", msg.Event, msg.Error)
	}
}
