package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
)

func startServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	opts.Logger = logger
	s := NewServer(opts)
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitConnected(t *testing.T, s *Server) *Client {
	t.Helper()
	select {
	case c := <-s.Connected():
		return c
	case <-time.After(5 * time.Second):
		t.Fatalf("client never registered")
		return nil
	}
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(msg)
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	clients := make(chan int, 8)
	s, ts := startServer(t, Options{OnClients: func(n int) { clients <- n }})

	a := dial(t, ts)
	waitConnected(t, s)
	b := dial(t, ts)
	waitConnected(t, s)

	s.Broadcast([]byte(`["log","hello"]`))
	for _, conn := range []*websocket.Conn{a, b} {
		if got := readText(t, conn); got != `["log","hello"]` {
			t.Fatalf("unexpected message %q", got)
		}
	}
	if n := <-clients; n != 1 {
		t.Fatalf("expected 1 client first, got %d", n)
	}
	if n := <-clients; n != 2 {
		t.Fatalf("expected 2 clients, got %d", n)
	}
}

func TestSendToTargetsOneClient(t *testing.T) {
	s, ts := startServer(t, Options{})

	a := dial(t, ts)
	ca := waitConnected(t, s)
	b := dial(t, ts)
	waitConnected(t, s)

	s.SendTo(ca, []byte("first"))
	s.Broadcast([]byte("second"))

	if got := readText(t, a); got != "first" {
		t.Fatalf("expected targeted message first, got %q", got)
	}
	if got := readText(t, a); got != "second" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := readText(t, b); got != "second" {
		t.Fatalf("other client should only see the broadcast, got %q", got)
	}
}

func TestMetricsRoute(t *testing.T) {
	_, ts := startServer(t, Options{Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})})
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
}

func TestBroadcastWithoutRunDoesNotBlock(t *testing.T) {
	logger, _ := test.NewNullLogger()
	s := NewServer(Options{Logger: logger})
	for i := 0; i < broadcastBuffer+10; i++ {
		s.Broadcast([]byte("x"))
	}
}
