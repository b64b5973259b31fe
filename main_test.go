package main

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"diagramboard/internal/middleware"
	"diagramboard/internal/room"
	"diagramboard/internal/transport"
	"diagramboard/internal/user"

	"github.com/gorilla/websocket"
)

func TestShutdownClosesListenerThenConnections(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rm := room.New(logger)
	ws := transport.NewHandler(rm, nil, middleware.NewRateLimit(1024), user.DefaultOptions(), nil, logger)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := &http.Server{Handler: ws}
	go srv.Serve(ln)

	url := "ws://" + ln.Addr().String()
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer client.Close()

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := client.ReadMessage(); err != nil {
		t.Fatalf("history not received: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := shutdown(ctx, srv, rm); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	if rm.ConnectionCount() != 0 {
		t.Fatalf("connections left after shutdown: %d", rm.ConnectionCount())
	}
	if _, _, err := websocket.DefaultDialer.Dial(url, nil); err == nil {
		t.Fatal("server still accepts connections after shutdown")
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := client.ReadMessage(); err == nil {
		t.Fatal("client connection still open after shutdown")
	}
}
