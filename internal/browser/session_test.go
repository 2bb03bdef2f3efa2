package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeCDP is a websocket endpoint that acks every command and records
// what was sent, optionally emitting events after chosen methods.
type fakeCDP struct {
	mu       sync.Mutex
	received []cdpMessage

	// eventAfter maps a method to an event name sent right after
	// acking that method.
	eventAfter map[string]string
}

func (f *fakeCDP) handler(t *testing.T) http.HandlerFunc {
	upgrader := websocket.Upgrader{}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for {
			var msg cdpMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			f.mu.Lock()
			f.received = append(f.received, msg)
			event := f.eventAfter[msg.Method]
			f.mu.Unlock()

			ack := map[string]any{"id": msg.ID, "result": map[string]any{}}
			if err := conn.WriteJSON(ack); err != nil {
				return
			}
			if event != "" {
				_ = conn.WriteJSON(map[string]any{"method": event, "params": map[string]any{}})
			}
		}
	}
}

func (f *fakeCDP) calls(method string) []cdpMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []cdpMessage
	for _, m := range f.received {
		if m.Method == method {
			out = append(out, m)
		}
	}
	return out
}

func dialSession(t *testing.T, fake *fakeCDP) (*Session, func()) {
	t.Helper()
	server := httptest.NewServer(fake.handler(t))
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	s := &Session{conn: newCDPConn(conn, nil)}
	return s, func() {
		_ = s.Close()
		server.Close()
	}
}

func TestClick_SendsPressAndRelease(t *testing.T) {
	fake := &fakeCDP{}
	s, done := dialSession(t, fake)
	defer done()

	if err := s.Click(context.Background(), 100, 200); err != nil {
		t.Fatalf("click: %v", err)
	}

	events := fake.calls("Input.dispatchMouseEvent")
	if len(events) != 2 {
		t.Fatalf("dispatchMouseEvent calls=%d want 2", len(events))
	}
	wantTypes := []string{"mousePressed", "mouseReleased"}
	for i, ev := range events {
		params := ev.Params.(map[string]any)
		if params["type"] != wantTypes[i] {
			t.Errorf("event %d type=%v want %s", i, params["type"], wantTypes[i])
		}
		if params["x"] != float64(100) || params["y"] != float64(200) {
			t.Errorf("event %d coords=(%v,%v)", i, params["x"], params["y"])
		}
		if params["button"] != "left" {
			t.Errorf("event %d button=%v", i, params["button"])
		}
	}
}

func TestClick_RepeatedClicksAreIndependent(t *testing.T) {
	fake := &fakeCDP{}
	s, done := dialSession(t, fake)
	defer done()

	for i := 0; i < 3; i++ {
		if err := s.Click(context.Background(), 7, 7); err != nil {
			t.Fatalf("click %d: %v", i, err)
		}
	}
	if got := len(fake.calls("Input.dispatchMouseEvent")); got != 6 {
		t.Fatalf("dispatchMouseEvent calls=%d want 6", got)
	}
}

func TestNavigate_WaitsForDomContent(t *testing.T) {
	fake := &fakeCDP{eventAfter: map[string]string{
		"Page.navigate": "Page.domContentEventFired",
	}}
	s, done := dialSession(t, fake)
	defer done()

	if err := s.Navigate(context.Background(), "https://game.test/play/"); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	navs := fake.calls("Page.navigate")
	if len(navs) != 1 {
		t.Fatalf("navigate calls=%d want 1", len(navs))
	}
	params := navs[0].Params.(map[string]any)
	if params["url"] != "https://game.test/play/" {
		t.Fatalf("url=%v", params["url"])
	}
}

func TestNavigate_ContextCancelUnblocks(t *testing.T) {
	// No event configured: navigation acked but domcontentloaded
	// never fires, so only the context gets us out.
	fake := &fakeCDP{}
	s, done := dialSession(t, fake)
	defer done()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := s.Navigate(ctx, "https://game.test/play/"); err == nil {
		t.Fatal("want error when domcontentloaded never fires")
	}
}

func TestClick_SessionNotOpen(t *testing.T) {
	var s Session
	if err := s.Click(context.Background(), 1, 1); err == nil {
		t.Fatal("want error on closed session")
	}
}

func TestCDPConn_ErrorResponse(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var msg cdpMessage
		for {
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			_ = conn.WriteJSON(map[string]any{
				"id":    msg.ID,
				"error": map[string]any{"code": -32000, "message": "target crashed"},
			})
		}
	}))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	c := newCDPConn(conn, nil)
	defer c.close()

	if _, err := c.call(context.Background(), "Page.navigate", nil); err == nil {
		t.Fatal("want error from CDP error response")
	} else if !strings.Contains(err.Error(), "target crashed") {
		t.Fatalf("err=%v want target crashed", err)
	}
}

func TestProfileRegistry_Exclusive(t *testing.T) {
	dir := t.TempDir()

	abs, err := acquireProfile(dir)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if _, err := acquireProfile(dir); err == nil {
		t.Fatal("second acquire of the same profile must fail")
	}
	releaseProfile(abs)
	abs2, err := acquireProfile(dir)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	releaseProfile(abs2)
}
