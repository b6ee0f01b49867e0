package plivostream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"nhooyr.io/websocket"
)

// Transport is the minimal connection capability the Handler consumes.
// Implementations must be safe for concurrent SendText calls. The SDK
// ships adapters for two WebSocket stacks; wrap anything else that can
// carry text frames to drive a Handler from it.
type Transport interface {
	// ID returns an identifier for this connection, for logging.
	ID() string
	// IsOpen reports whether the connection can still accept sends.
	IsOpen() bool
	// SendText writes one text frame. It either completes or fails; there
	// is no internal retry.
	SendText(ctx context.Context, text string) error
	// Close closes the connection. Safe to call more than once.
	Close() error
}

// WebsocketTransport adapts a nhooyr.io/websocket connection.
type WebsocketTransport struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex // Serializes writes to the connection
	closed  atomic.Bool
}

// NewWebsocketTransport wraps an accepted or dialed nhooyr connection.
func NewWebsocketTransport(id string, conn *websocket.Conn) *WebsocketTransport {
	return &WebsocketTransport{id: id, conn: conn}
}

// ID returns the connection identifier.
func (t *WebsocketTransport) ID() string { return t.id }

// IsOpen reports whether the connection is still usable.
func (t *WebsocketTransport) IsOpen() bool { return !t.closed.Load() }

// SendText writes one text frame to the connection.
func (t *WebsocketTransport) SendText(ctx context.Context, text string) error {
	if t.closed.Load() {
		return ErrNotConnected
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.conn.Write(ctx, websocket.MessageText, []byte(text)); err != nil {
		t.closed.Store(true)
		return err
	}
	return nil
}

// Close closes the connection with a normal closure status.
func (t *WebsocketTransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	return t.conn.Close(websocket.StatusNormalClosure, "closing")
}

// markClosed flags the transport as dead without a close handshake. The
// read loop uses it once the peer is already gone.
func (t *WebsocketTransport) markClosed() { t.closed.Store(true) }

// GorillaTransport adapts a gorilla/websocket connection.
type GorillaTransport struct {
	id      string
	conn    *gorillaws.Conn
	writeMu sync.Mutex // gorilla permits one concurrent writer
	closed  atomic.Bool
}

// NewGorillaTransport wraps an upgraded or dialed gorilla connection.
func NewGorillaTransport(id string, conn *gorillaws.Conn) *GorillaTransport {
	return &GorillaTransport{id: id, conn: conn}
}

// ID returns the connection identifier.
func (t *GorillaTransport) ID() string { return t.id }

// IsOpen reports whether the connection is still usable.
func (t *GorillaTransport) IsOpen() bool { return !t.closed.Load() }

// SendText writes one text frame. A context deadline is honored through
// the connection's write deadline.
func (t *GorillaTransport) SendText(ctx context.Context, text string) error {
	if t.closed.Load() {
		return ErrNotConnected
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetWriteDeadline(deadline)
	} else {
		_ = t.conn.SetWriteDeadline(time.Time{})
	}
	if err := t.conn.WriteMessage(gorillaws.TextMessage, []byte(text)); err != nil {
		t.closed.Store(true)
		return err
	}
	return nil
}

// Close sends a best-effort close frame and closes the connection.
func (t *GorillaTransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	t.writeMu.Lock()
	_ = t.conn.WriteControl(gorillaws.CloseMessage,
		gorillaws.FormatCloseMessage(gorillaws.CloseNormalClosure, "closing"),
		time.Now().Add(time.Second))
	t.writeMu.Unlock()
	return t.conn.Close()
}

// MarkClosed flags the transport as dead without a close handshake, for
// read loops that learn of the close from a failed read.
func (t *GorillaTransport) MarkClosed() { t.closed.Store(true) }
