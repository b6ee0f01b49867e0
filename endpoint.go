package plivostream

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

// Endpoint accepts stream WebSocket connections and drives one Handler
// per connection: upgrade, HandleOpen, a synchronous read loop feeding
// HandleMessage, then HandleClose when the peer goes away. Mount it on
// the path your answer XML points the platform at.
type Endpoint struct {
	// Factory builds the Handler for each accepted connection. Required.
	Factory func() *Handler

	// AcceptOptions are passed through to the WebSocket upgrade. Optional.
	AcceptOptions *websocket.AcceptOptions

	// Logger receives endpoint-level events. Optional.
	Logger *Logger
}

// ServeHTTP implements http.Handler.
func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if e.Factory == nil {
		http.Error(w, "stream endpoint has no handler factory", http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, e.AcceptOptions)
	if err != nil {
		e.logger().Warn("ws_accept_failed", map[string]any{"remote": r.RemoteAddr, "err": err})
		return
	}

	id := uuid.NewString()
	t := NewWebsocketTransport(id, conn)
	defer t.Close()

	log := e.logger().WithContext(map[string]any{"connection_id": id})
	log.Info("ws_connected", map[string]any{"remote": r.RemoteAddr})

	h := e.Factory()
	h.HandleOpen(t)

	// Synchronous read loop: the Handler dispatches on this goroutine.
	ctx := r.Context()
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			t.markClosed()
			reason := closeReason(err)
			log.Info("ws_closed", map[string]any{"reason": reason})
			h.HandleClose(reason)
			return
		}
		// The protocol is JSON over text frames; anything else is ignored.
		if typ != websocket.MessageText {
			continue
		}
		h.HandleMessage(data)
	}
}

func (e *Endpoint) logger() *Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return DefaultLogger
}

// closeReason extracts a human-readable close reason from a read error.
func closeReason(err error) string {
	var ce websocket.CloseError
	if errors.As(err, &ce) {
		if ce.Reason != "" {
			return ce.Reason
		}
		return fmt.Sprintf("close status %d", int(ce.Code))
	}
	return err.Error()
}
