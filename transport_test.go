package plivostream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"nhooyr.io/websocket"
)

// gorillaPair upgrades a loopback connection and returns the server side
// wrapped in a GorillaTransport together with the raw client connection.
func gorillaPair(t *testing.T) (*GorillaTransport, *gorillaws.Conn, func()) {
	t.Helper()

	upgrader := gorillaws.Upgrader{}
	serverConn := make(chan *gorillaws.Conn, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		serverConn <- conn
	}))

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	if err != nil {
		server.Close()
		t.Fatalf("failed to dial: %v", err)
	}

	var sc *gorillaws.Conn
	select {
	case sc = <-serverConn:
	case <-time.After(5 * time.Second):
		client.Close()
		server.Close()
		t.Fatal("timed out waiting for server connection")
	}

	tr := NewGorillaTransport("test-conn", sc)
	return tr, client, func() {
		client.Close()
		sc.Close()
		server.Close()
	}
}

func TestGorillaTransport_SendText(t *testing.T) {
	tr, client, cleanup := gorillaPair(t)
	defer cleanup()

	if tr.ID() != "test-conn" {
		t.Errorf("unexpected transport id %q", tr.ID())
	}
	if !tr.IsOpen() {
		t.Fatal("fresh transport must report open")
	}

	if err := tr.SendText(context.Background(), `{"event":"clearAudio"}`); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	client.SetReadDeadline(time.Now().Add(5 * time.Second))
	typ, data, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("client read failed: %v", err)
	}
	if typ != gorillaws.TextMessage {
		t.Errorf("expected a text frame, got %d", typ)
	}
	if string(data) != `{"event":"clearAudio"}` {
		t.Errorf("unexpected frame body %q", data)
	}
}

func TestGorillaTransport_SendAfterClose(t *testing.T) {
	tr, _, cleanup := gorillaPair(t)
	defer cleanup()

	if err := tr.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if tr.IsOpen() {
		t.Error("closed transport must not report open")
	}
	if err := tr.SendText(context.Background(), "x"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected after close, got %v", err)
	}
	// Closing again is a no-op.
	if err := tr.Close(); err != nil {
		t.Errorf("second close must be a no-op, got %v", err)
	}
}

func TestGorillaTransport_MarkClosed(t *testing.T) {
	tr, _, cleanup := gorillaPair(t)
	defer cleanup()

	tr.MarkClosed()
	if tr.IsOpen() {
		t.Error("marked transport must not report open")
	}
	if err := tr.SendText(context.Background(), "x"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestWebsocketTransport_SendText(t *testing.T) {
	received := make(chan []byte, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept failed: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		_, data, err := conn.Read(r.Context())
		if err != nil {
			return
		}
		received <- data
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(server.URL, "http"), nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}

	tr := NewWebsocketTransport("client-conn", conn)
	defer tr.Close()

	if err := tr.SendText(ctx, "hello"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	select {
	case data := <-received:
		if string(data) != "hello" {
			t.Errorf("unexpected frame body %q", data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the frame")
	}

	if err := tr.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if tr.IsOpen() {
		t.Error("closed transport must not report open")
	}
	if err := tr.SendText(ctx, "x"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected after close, got %v", err)
	}
}
