package plivostream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

// dialEndpoint stands up the Endpoint on an httptest server and dials it
// with a real WebSocket client, so the full upgrade-read-dispatch path is
// exercised.
func dialEndpoint(t *testing.T, e *Endpoint) (*websocket.Conn, func()) {
	t.Helper()

	server := httptest.NewServer(e)
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		cancel()
		server.Close()
		t.Fatalf("failed to dial endpoint: %v", err)
	}
	return conn, func() {
		conn.Close(websocket.StatusNormalClosure, "")
		cancel()
		server.Close()
	}
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestEndpoint_EchoRoundTrip(t *testing.T) {
	started := make(chan struct{})
	e := &Endpoint{
		Factory: func() *Handler {
			h := NewHandler()
			h.OnStart(func(*StartEvent) { close(started) })
			h.OnMedia(func(ev *MediaEvent) {
				audio, err := ev.RawMedia()
				if err != nil {
					t.Errorf("failed to decode media payload: %v", err)
					return
				}
				if err := h.SendAudio(context.Background(), audio); err != nil {
					t.Errorf("echo send failed: %v", err)
				}
			})
			return h
		},
	}

	conn, cleanup := dialEndpoint(t, e)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Write(ctx, websocket.MessageText, []byte(startFrame)); err != nil {
		t.Fatalf("failed to send start frame: %v", err)
	}

	audio := []byte{0x7f, 0x7f, 0x00, 0xff}
	mediaFrame, _ := json.Marshal(map[string]any{
		"event":    "media",
		"streamId": "S1",
		"media":    map[string]any{"payload": base64.StdEncoding.EncodeToString(audio)},
	})
	if err := conn.Write(ctx, websocket.MessageText, mediaFrame); err != nil {
		t.Fatalf("failed to send media frame: %v", err)
	}

	typ, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("failed to read echoed frame: %v", err)
	}
	if typ != websocket.MessageText {
		t.Fatalf("expected a text frame, got %v", typ)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("echoed frame is not valid JSON: %v", err)
	}
	if m["event"] != "playAudio" {
		t.Errorf("expected playAudio, got %v", m["event"])
	}
	if m["streamId"] != "S1" {
		t.Errorf("expected streamId S1, got %v", m["streamId"])
	}
	media := m["media"].(map[string]any)
	if got, _ := base64.StdEncoding.DecodeString(media["payload"].(string)); string(got) != string(audio) {
		t.Errorf("echoed audio does not match, got %v", got)
	}

	waitFor(t, started, "start callback")
}

func TestEndpoint_ConnectAndDisconnectLifecycle(t *testing.T) {
	connected := make(chan struct{})
	disconnected := make(chan struct{})
	var closeReason string

	e := &Endpoint{
		Factory: func() *Handler {
			h := NewHandler()
			h.OnConnected(func() { close(connected) })
			h.OnDisconnected(func(reason string) {
				closeReason = reason
				close(disconnected)
			})
			return h
		},
	}

	conn, cleanup := dialEndpoint(t, e)
	defer cleanup()

	waitFor(t, connected, "connected callback")

	if err := conn.Close(websocket.StatusNormalClosure, "done talking"); err != nil {
		t.Fatalf("client close failed: %v", err)
	}

	waitFor(t, disconnected, "disconnected callback")
	if closeReason != "done talking" {
		t.Errorf("expected peer close reason to be surfaced, got %q", closeReason)
	}
}

func TestEndpoint_BinaryFramesIgnored(t *testing.T) {
	mediaSeen := make(chan struct{})
	stopSeen := make(chan struct{})

	e := &Endpoint{
		Factory: func() *Handler {
			h := NewHandler()
			h.OnMedia(func(*MediaEvent) { close(mediaSeen) })
			h.OnStop(func(*StopEvent) { close(stopSeen) })
			return h
		},
	}

	conn, cleanup := dialEndpoint(t, e)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// A binary frame must be skipped, not decoded.
	if err := conn.Write(ctx, websocket.MessageBinary, []byte(`{"event":"media","media":{"payload":""}}`)); err != nil {
		t.Fatalf("failed to send binary frame: %v", err)
	}
	// A text frame after it must still be processed.
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"event":"stop","streamId":"S1","reason":"call ended"}`)); err != nil {
		t.Fatalf("failed to send stop frame: %v", err)
	}

	waitFor(t, stopSeen, "stop callback")
	select {
	case <-mediaSeen:
		t.Error("binary frame must not be dispatched as an event")
	default:
	}
}

func TestEndpoint_NoFactory(t *testing.T) {
	server := httptest.NewServer(&Endpoint{})
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500 without a factory, got %d", resp.StatusCode)
	}
}

func TestCloseReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "close error with reason",
			err:  websocket.CloseError{Code: websocket.StatusNormalClosure, Reason: "call ended"},
			want: "call ended",
		},
		{
			name: "close error without reason",
			err:  websocket.CloseError{Code: websocket.StatusGoingAway},
			want: "close status 1001",
		},
		{
			name: "plain error",
			err:  context.DeadlineExceeded,
			want: context.DeadlineExceeded.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := closeReason(tt.err); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
