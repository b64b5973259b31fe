package transport

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"diagramboard/internal/middleware"
	"diagramboard/internal/room"
	"diagramboard/internal/user"

	"github.com/gorilla/websocket"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, ipLimiter *middleware.IPRateLimit, maxSize int, origins []string) (*httptest.Server, *room.Room) {
	t.Helper()
	return newTestServerWithOptions(t, ipLimiter, maxSize, origins, user.DefaultOptions())
}

func newTestServerWithOptions(t *testing.T, ipLimiter *middleware.IPRateLimit, maxSize int, origins []string, opts user.Options) (*httptest.Server, *room.Room) {
	t.Helper()
	rm := room.New(discardLogger())
	h := NewHandler(rm, ipLimiter, middleware.NewRateLimit(maxSize), opts, origins, discardLogger())
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		rm.CloseAll()
		srv.Close()
	})
	return srv, rm
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func read(t *testing.T, c *websocket.Conn) string {
	t.Helper()
	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return string(msg)
}

// dial connects and consumes the history frame
func dial(t *testing.T, srv *httptest.Server) (*websocket.Conn, []json.RawMessage) {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	var hist struct {
		Type string            `json:"type"`
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(read(t, c)), &hist); err != nil {
		t.Fatalf("history is not JSON: %v", err)
	}
	if hist.Type != "history" {
		t.Fatalf("first frame type = %q, want history", hist.Type)
	}
	return c, hist.Data
}

func write(t *testing.T, c *websocket.Conn, msg string) {
	t.Helper()
	if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func TestRelayBetweenClients(t *testing.T) {
	srv, _ := newTestServer(t, nil, 1024, nil)

	a, hist := dial(t, srv)
	if len(hist) != 0 {
		t.Fatalf("expected empty history, got %d events", len(hist))
	}
	b, _ := dial(t, srv)

	stroke := `{"type":"stroke","points":[[1,2],[3,4]]}`
	write(t, a, stroke)
	if got := read(t, b); got != stroke {
		t.Fatalf("expected verbatim relay, got %s", got)
	}

	// a malformed frame is dropped and the sender stays connected
	write(t, a, "not json")
	second := `{"type":"stroke","id":2}`
	write(t, a, second)
	if got := read(t, b); got != second {
		t.Fatalf("expected second stroke, got %s", got)
	}

	_, hist = dial(t, srv)
	if len(hist) != 2 || string(hist[0]) != stroke || string(hist[1]) != second {
		t.Fatalf("unexpected history for late joiner: %s", hist)
	}
}

func TestOversizedFrameIsDropped(t *testing.T) {
	srv, rm := newTestServer(t, nil, 64, nil)

	a, _ := dial(t, srv)
	b, _ := dial(t, srv)

	write(t, a, `{"type":"stroke","pad":"`+strings.Repeat("x", 100)+`"}`)
	small := `{"type":"stroke"}`
	write(t, a, small)

	if got := read(t, b); got != small {
		t.Fatalf("expected only the small frame, got %s", got)
	}
	if rm.HistoryLen() != 1 {
		t.Fatalf("expected 1 event in history, got %d", rm.HistoryLen())
	}
}

func TestRateLimitedFrameIsDropped(t *testing.T) {
	opts := user.DefaultOptions()
	opts.MessagesPerSecond = 5
	opts.BurstSize = 1
	srv, rm := newTestServerWithOptions(t, nil, 1024, nil, opts)

	a, _ := dial(t, srv)
	b, _ := dial(t, srv)

	first, second, third := `{"n":1}`, `{"n":2}`, `{"n":3}`
	write(t, a, first)
	write(t, a, second)
	if got := read(t, b); got != first {
		t.Fatalf("expected first frame, got %s", got)
	}

	// let the limiter refill
	time.Sleep(400 * time.Millisecond)
	write(t, a, third)
	if got := read(t, b); got != third {
		t.Fatalf("expected the over-rate frame to be dropped, got %s", got)
	}

	if rm.ConnectionCount() != 2 {
		t.Fatalf("rate-limited sender was disconnected, %d connections", rm.ConnectionCount())
	}
	_, hist := dial(t, srv)
	if len(hist) != 2 || string(hist[0]) != first || string(hist[1]) != third {
		t.Fatalf("unexpected history %s", hist)
	}
}

func TestDisconnectUnregisters(t *testing.T) {
	srv, rm := newTestServer(t, nil, 1024, nil)

	a, _ := dial(t, srv)
	dial(t, srv)
	if rm.ConnectionCount() != 2 {
		t.Fatalf("expected 2 connections, got %d", rm.ConnectionCount())
	}

	a.Close()
	deadline := time.Now().Add(2 * time.Second)
	for rm.ConnectionCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("connection not unregistered, %d left", rm.ConnectionCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHandshakeRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, middleware.NewIPRateLimit(1, 1), 1024, nil)

	dial(t, srv)
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err == nil {
		t.Fatal("expected second handshake to be rejected")
	}
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", resp)
	}
}

func TestOriginCheck(t *testing.T) {
	srv, _ := newTestServer(t, nil, 1024, []string{"http://board.example"})

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	if err == nil || resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign origin, got %v", err)
	}

	header.Set("Origin", "http://board.example")
	c, _, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	if err != nil {
		t.Fatalf("allowed origin rejected: %v", err)
	}
	c.Close()
}

// lockedBuffer collects log output written from the server goroutines
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestMalformedFrameIsLoggedAtInfo(t *testing.T) {
	logs := &lockedBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelInfo}))

	rm := room.New(discardLogger())
	srv := httptest.NewServer(NewHandler(rm, nil, middleware.NewRateLimit(1024), user.DefaultOptions(), nil, logger))
	t.Cleanup(func() {
		rm.CloseAll()
		srv.Close()
	})

	a, _ := dial(t, srv)
	b, _ := dial(t, srv)

	write(t, a, "not json")
	valid := `{"type":"stroke"}`
	write(t, a, valid)
	if got := read(t, b); got != valid {
		t.Fatalf("expected valid frame, got %s", got)
	}

	out := logs.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "dropped message") {
		t.Fatalf("dropped frame not logged at info level:\n%s", out)
	}
}
