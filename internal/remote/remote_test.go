package remote

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/1broseidon/presenter/internal/config"
	"github.com/1broseidon/presenter/internal/events"
)

func newTestRemote(t *testing.T, cfg config.RemoteConfig) (*Server, *httptest.Server, *events.Bus) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := events.NewBus(logger)
	s := New(bus, cfg, logger)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Close()
		bus.Close()
		srv.Close()
	})
	return s, srv, bus
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/remote/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStatus(t *testing.T) {
	s, srv, _ := newTestRemote(t, config.RemoteConfig{})
	s.BroadcastState(json.RawMessage(`{"live":4}`))

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Online           bool            `json:"online"`
		ConnectedClients int             `json:"connectedClients"`
		State            json.RawMessage `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Online || body.ConnectedClients != 0 || string(body.State) != `{"live":4}` {
		t.Fatalf("status = %+v", body)
	}
}

func TestCommandsForwardedToMainWindow(t *testing.T) {
	s, srv, bus := newTestRemote(t, config.RemoteConfig{})
	sub, err := bus.Subscribe(config.MainLabel, 8)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	conn := dial(t, srv)
	waitFor(t, func() bool { return s.ClientCount() == 1 })

	frames := []string{
		`{"type":"go-live"}`,
		`{"type":"launch-confetti"}`,
		`not json`,
		`{"type":"stage-slide","data":{"index":2}}`,
		`{"type":"next-stack","data":"ignored"}`,
	}
	for _, f := range frames {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	want := []struct{ name, payload string }{
		{"remote-go-live", "null"},
		{"remote-stage-slide", `{"index":2}`},
		{"remote-next-stack", "null"},
	}
	for _, w := range want {
		select {
		case ev := <-sub.Events():
			if ev.Name != w.name || string(ev.Payload) != w.payload {
				t.Fatalf("event = %s %s, want %s %s", ev.Name, ev.Payload, w.name, w.payload)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("missing event %s", w.name)
		}
	}
}

func TestStateBroadcastAndReplay(t *testing.T) {
	s, srv, _ := newTestRemote(t, config.RemoteConfig{})

	first := dial(t, srv)
	waitFor(t, func() bool { return s.ClientCount() == 1 })

	if n := s.BroadcastState(json.RawMessage(`{"slide":1}`)); n != 1 {
		t.Fatalf("queued for %d clients, want 1", n)
	}
	msg := readMessage(t, first)
	if msg.Type != StateUpdateType || string(msg.Data) != `{"slide":1}` {
		t.Fatalf("first got %+v", msg)
	}

	second := dial(t, srv)
	msg = readMessage(t, second)
	if msg.Type != StateUpdateType || string(msg.Data) != `{"slide":1}` {
		t.Fatalf("new client got %+v, want replayed state", msg)
	}
}

func TestNoReplayWithoutState(t *testing.T) {
	s, srv, _ := newTestRemote(t, config.RemoteConfig{})
	conn := dial(t, srv)
	waitFor(t, func() bool { return s.ClientCount() == 1 })

	conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected no frame before any state is broadcast")
	}
}

func TestClientCountDropsOnDisconnect(t *testing.T) {
	s, srv, _ := newTestRemote(t, config.RemoteConfig{})
	conn := dial(t, srv)
	waitFor(t, func() bool { return s.ClientCount() == 1 })

	conn.Close()
	waitFor(t, func() bool { return s.ClientCount() == 0 })
}

func TestStaticRemoteUI(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("remote()"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, srv, _ := newTestRemote(t, config.RemoteConfig{StaticDir: dir})

	resp, err := http.Get(srv.URL + "/remote/app.js")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "remote()" {
		t.Fatalf("static = %d %q", resp.StatusCode, body)
	}
}
