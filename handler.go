package plivostream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
)

// Default outbound audio format, used when no media format has been
// negotiated by a start event and the caller does not supply one.
const (
	DefaultContentType = "audio/x-mulaw"
	DefaultSampleRate  = 8000
)

// streamState carries the metadata captured from a start event. Records
// are immutable once published; a later start event replaces the record
// wholesale rather than mutating it in place.
type streamState struct {
	streamID    string
	callID      string
	accountID   string
	mediaFormat *MediaFormat
}

// Handler is the event-dispatch core for one stream connection. It decodes
// incoming frames, routes them to registered callbacks and listeners, owns
// the connection-scoped stream state, and builds outgoing control and
// audio messages.
//
// A Handler lives for exactly one connection: Disconnected until
// HandleOpen, Connected until HandleClose, then Disconnected for good.
// Create a new Handler per connection.
//
// Two registration mechanisms coexist and may be mixed freely: one
// single-slot callback per event kind (newest registration wins) and a
// list of full StreamEventListeners. On each event the single-slot
// callback fires first, then every listener in registration order.
// Callbacks are executed synchronously on whatever goroutine delivers the
// frame, so they should not block.
type Handler struct {
	cfg Config

	// Connection state
	transportMu sync.RWMutex // Protects the transport reference
	transport   Transport    // Attached transport, nil while disconnected
	state       atomic.Pointer[streamState]

	// Event handlers - these are called when corresponding events are received
	handlerMu      sync.RWMutex              // Protects the single-slot callback fields
	onConnected    func()                    // Called when the connection is established
	onStart        func(*StartEvent)         // Called when a stream starts
	onMedia        func(*MediaEvent)         // Called for each inbound audio chunk
	onDtmf         func(*DtmfEvent)          // Called when a DTMF tone is detected
	onStop         func(*StopEvent)          // Called when the stream stops
	onPlayedStream func(*PlayedStreamEvent)  // Called when a checkpoint has played out
	onClearedAudio func(*ClearedAudioEvent)  // Called after the audio buffer is cleared
	onDisconnected func(reason string)       // Called when the connection closes
	onError        func(error)               // Called for errors on the connection

	// Full listeners. Add/Remove build a fresh slice so dispatch can keep
	// iterating a snapshot while the list changes underneath it.
	listenerMu sync.RWMutex
	listeners  []StreamEventListener
}

// NewHandler creates a Handler with default configuration.
func NewHandler() *Handler {
	h, _ := NewHandlerWithConfig(Config{})
	return h
}

// NewHandlerWithConfig creates a Handler with the given configuration.
func NewHandlerWithConfig(cfg Config) (*Handler, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return &Handler{cfg: cfg}, nil
}

// Callback registration methods. Each slot holds at most one callback;
// registering again replaces the previous one. All return the handler so
// registrations can be chained.

// OnConnected registers a callback for connection establishment.
func (h *Handler) OnConnected(fn func()) *Handler {
	h.handlerMu.Lock()
	defer h.handlerMu.Unlock()
	h.onConnected = fn
	return h
}

// OnStart registers a callback for stream start events.
func (h *Handler) OnStart(fn func(*StartEvent)) *Handler {
	h.handlerMu.Lock()
	defer h.handlerMu.Unlock()
	h.onStart = fn
	return h
}

// OnMedia registers a callback for inbound audio events.
func (h *Handler) OnMedia(fn func(*MediaEvent)) *Handler {
	h.handlerMu.Lock()
	defer h.handlerMu.Unlock()
	h.onMedia = fn
	return h
}

// OnDtmf registers a callback for DTMF events.
func (h *Handler) OnDtmf(fn func(*DtmfEvent)) *Handler {
	h.handlerMu.Lock()
	defer h.handlerMu.Unlock()
	h.onDtmf = fn
	return h
}

// OnStop registers a callback for stream stop events.
func (h *Handler) OnStop(fn func(*StopEvent)) *Handler {
	h.handlerMu.Lock()
	defer h.handlerMu.Unlock()
	h.onStop = fn
	return h
}

// OnPlayedStream registers a callback for checkpoint playback events.
func (h *Handler) OnPlayedStream(fn func(*PlayedStreamEvent)) *Handler {
	h.handlerMu.Lock()
	defer h.handlerMu.Unlock()
	h.onPlayedStream = fn
	return h
}

// OnClearedAudio registers a callback for cleared-audio events.
func (h *Handler) OnClearedAudio(fn func(*ClearedAudioEvent)) *Handler {
	h.handlerMu.Lock()
	defer h.handlerMu.Unlock()
	h.onClearedAudio = fn
	return h
}

// OnDisconnected registers a callback for connection close.
func (h *Handler) OnDisconnected(fn func(reason string)) *Handler {
	h.handlerMu.Lock()
	defer h.handlerMu.Unlock()
	h.onDisconnected = fn
	return h
}

// OnError registers a callback for the connection's error path.
func (h *Handler) OnError(fn func(error)) *Handler {
	h.handlerMu.Lock()
	defer h.handlerMu.Unlock()
	h.onError = fn
	return h
}

// AddListener registers a full event listener. Listeners fire after the
// single-slot callbacks, in registration order.
func (h *Handler) AddListener(l StreamEventListener) *Handler {
	h.listenerMu.Lock()
	defer h.listenerMu.Unlock()
	next := make([]StreamEventListener, 0, len(h.listeners)+1)
	next = append(next, h.listeners...)
	next = append(next, l)
	h.listeners = next
	return h
}

// RemoveListener removes a previously added listener. Removing during a
// dispatch does not affect the dispatch already in flight.
func (h *Handler) RemoveListener(l StreamEventListener) *Handler {
	h.listenerMu.Lock()
	defer h.listenerMu.Unlock()
	next := make([]StreamEventListener, 0, len(h.listeners))
	for _, x := range h.listeners {
		if x != l {
			next = append(next, x)
		}
	}
	h.listeners = next
	return h
}

// snapshotListeners returns the current listener slice. Slices are never
// mutated in place, so the returned header is safe to iterate without
// holding the lock.
func (h *Handler) snapshotListeners() []StreamEventListener {
	h.listenerMu.RLock()
	defer h.listenerMu.RUnlock()
	return h.listeners
}

// Connection lifecycle. These are invoked by the transport's read loop
// (Endpoint does this for server-side connections); call them yourself
// when driving the Handler from a custom transport.

// HandleOpen transitions the handler to Connected and notifies the
// connected callback and every listener, in that order.
func (h *Handler) HandleOpen(t Transport) {
	h.transportMu.Lock()
	h.transport = t
	h.transportMu.Unlock()
	h.log("connection_open", map[string]any{"transport_id": t.ID()})

	h.handlerMu.RLock()
	cb := h.onConnected
	h.handlerMu.RUnlock()
	if cb != nil {
		h.invoke("onConnected", "connected", func() { cb() })
	}
	for _, l := range h.snapshotListeners() {
		l := l
		h.invoke("listener.OnConnected", "connected", func() { l.OnConnected() })
	}
}

// HandleMessage decodes one incoming text frame and dispatches the typed
// event. Decode failures are routed to the error path and the frame is
// dropped; they never reach callbacks as events.
//
// A second start event on the same connection is not guarded against: it
// silently re-publishes the stream state. The platform does not do this
// in practice and re-start is not a supported operation.
func (h *Handler) HandleMessage(data []byte) {
	event, err := ParseStreamEvent(data)
	if err != nil {
		h.logError("bad_event_json", map[string]any{"err": err, "raw_data": string(data)})
		h.HandleError(err)
		return
	}
	h.dispatch(event)
}

// HandleClose transitions the handler to Disconnected, notifies the
// disconnect callback and listeners, and clears the transport reference.
// Safe to call even if the handler was never connected. Panics from the
// close-path callbacks are logged, not re-dispatched.
func (h *Handler) HandleClose(reason string) {
	h.log("connection_closed", map[string]any{"reason": reason})

	h.handlerMu.RLock()
	cb := h.onDisconnected
	h.handlerMu.RUnlock()
	if cb != nil {
		h.invokeQuiet("onDisconnected", func() { cb(reason) })
	}
	for _, l := range h.snapshotListeners() {
		l := l
		h.invokeQuiet("listener.OnDisconnected", func() { l.OnDisconnected(reason) })
	}

	h.transportMu.Lock()
	h.transport = nil
	h.transportMu.Unlock()
}

// HandleError routes an error to the error callback and every listener's
// OnError, in that order. It never panics; a panicking error callback is
// logged and skipped so the error path cannot recurse.
func (h *Handler) HandleError(err error) {
	h.handlerMu.RLock()
	cb := h.onError
	h.handlerMu.RUnlock()
	if cb != nil {
		h.invokeQuiet("onError", func() { cb(err) })
	}
	for _, l := range h.snapshotListeners() {
		l := l
		h.invokeQuiet("listener.OnError", func() { l.OnError(err) })
	}
}

// invoke runs one callback, containing any panic and routing it to the
// error path so a misbehaving listener cannot block its siblings or crash
// the connection.
func (h *Handler) invoke(name, eventType string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			cbErr := NewCallbackError(name, eventType, r)
			h.logError("callback_panic", map[string]any{"callback": name, "event": eventType, "err": cbErr.Cause})
			h.HandleError(cbErr)
		}
	}()
	fn()
}

// invokeQuiet runs a callback on the error or close path, where a panic
// is only logged. Dispatching it again would recurse.
func (h *Handler) invokeQuiet(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.logError("callback_panic", map[string]any{"callback": name, "err": r})
		}
	}()
	fn()
}

func (h *Handler) dispatch(event Event) {
	switch e := event.(type) {
	case *StartEvent:
		h.handleStart(e)
	case *MediaEvent:
		h.handleMedia(e)
	case *DtmfEvent:
		h.handleDtmf(e)
	case *StopEvent:
		h.handleStop(e)
	case *PlayedStreamEvent:
		h.handlePlayedStream(e)
	case *ClearedAudioEvent:
		h.handleClearedAudio(e)
	default:
		// Unknown-kind events are dropped after logging, never dispatched.
		h.log("unknown_event", map[string]any{"event": event.Type()})
	}
}

func (h *Handler) handleStart(e *StartEvent) {
	// Publish stream state before any callback sees the event, so outbound
	// calls made from inside a start callback are already stamped.
	if e.Start != nil {
		h.state.Store(&streamState{
			streamID:    e.Start.StreamID,
			callID:      e.Start.CallID,
			accountID:   e.Start.AccountID,
			mediaFormat: e.Start.MediaFormat,
		})
	}
	h.log("stream_started", map[string]any{"stream_id": h.StreamID(), "call_id": h.CallID()})

	h.handlerMu.RLock()
	cb := h.onStart
	h.handlerMu.RUnlock()
	if cb != nil {
		h.invoke("onStart", EventStart, func() { cb(e) })
	}
	for _, l := range h.snapshotListeners() {
		l := l
		h.invoke("listener.OnStart", EventStart, func() { l.OnStart(e) })
	}
}

func (h *Handler) handleMedia(e *MediaEvent) {
	h.handlerMu.RLock()
	cb := h.onMedia
	h.handlerMu.RUnlock()
	if cb != nil {
		h.invoke("onMedia", EventMedia, func() { cb(e) })
	}
	for _, l := range h.snapshotListeners() {
		l := l
		h.invoke("listener.OnMedia", EventMedia, func() { l.OnMedia(e) })
	}
}

func (h *Handler) handleDtmf(e *DtmfEvent) {
	h.log("dtmf_detected", map[string]any{"digit": e.Digit(), "track": e.Track()})

	h.handlerMu.RLock()
	cb := h.onDtmf
	h.handlerMu.RUnlock()
	if cb != nil {
		h.invoke("onDtmf", EventDtmf, func() { cb(e) })
	}
	for _, l := range h.snapshotListeners() {
		l := l
		h.invoke("listener.OnDtmf", EventDtmf, func() { l.OnDtmf(e) })
	}
}

func (h *Handler) handleStop(e *StopEvent) {
	h.log("stream_stopped", map[string]any{"reason": e.Reason})

	h.handlerMu.RLock()
	cb := h.onStop
	h.handlerMu.RUnlock()
	if cb != nil {
		h.invoke("onStop", EventStop, func() { cb(e) })
	}
	for _, l := range h.snapshotListeners() {
		l := l
		h.invoke("listener.OnStop", EventStop, func() { l.OnStop(e) })
	}
}

func (h *Handler) handlePlayedStream(e *PlayedStreamEvent) {
	h.log("checkpoint_played", map[string]any{"name": e.Name})

	h.handlerMu.RLock()
	cb := h.onPlayedStream
	h.handlerMu.RUnlock()
	if cb != nil {
		h.invoke("onPlayedStream", EventPlayedStream, func() { cb(e) })
	}
	for _, l := range h.snapshotListeners() {
		l := l
		h.invoke("listener.OnPlayedStream", EventPlayedStream, func() { l.OnPlayedStream(e) })
	}
}

func (h *Handler) handleClearedAudio(e *ClearedAudioEvent) {
	h.log("audio_cleared", map[string]any{"stream_id": e.StreamID})

	h.handlerMu.RLock()
	cb := h.onClearedAudio
	h.handlerMu.RUnlock()
	if cb != nil {
		h.invoke("onClearedAudio", EventClearedAudio, func() { cb(e) })
	}
	for _, l := range h.snapshotListeners() {
		l := l
		h.invoke("listener.OnClearedAudio", EventClearedAudio, func() { l.OnClearedAudio(e) })
	}
}

// Outbound operations. All fail with ErrNotConnected when no open
// transport is attached, without touching the transport.

// SendAudio queues audio for playback to the caller using the negotiated
// media format (or the configured defaults when no start event has been
// received). The bytes are base64-encoded automatically.
func (h *Handler) SendAudio(ctx context.Context, audio []byte) error {
	return h.SendAudioFormat(ctx, audio, "", 0)
}

// SendAudioFormat queues audio for playback with an explicit content type
// and sample rate. Pass "" or 0 to fall back to the negotiated format.
func (h *Handler) SendAudioFormat(ctx context.Context, audio []byte, contentType string, sampleRate int) error {
	t := h.currentTransport()
	if t == nil || !t.IsOpen() {
		return ErrNotConnected
	}
	if max := h.cfg.maxSendBytes(); len(audio) > max {
		return NewSendError(MessagePlayAudio,
			fmt.Errorf("audio chunk too large (%d bytes), maximum is %d bytes", len(audio), max))
	}
	if contentType == "" {
		contentType = h.negotiatedContentType()
	}
	if sampleRate == 0 {
		sampleRate = h.negotiatedSampleRate()
	}

	msg := NewPlayAudioMessage(base64.StdEncoding.EncodeToString(audio), contentType, Ptr(sampleRate))
	return h.sendMessage(ctx, t, msg)
}

// SendClearAudio tells the platform to drop buffered and currently
// playing audio on the stream.
func (h *Handler) SendClearAudio(ctx context.Context) error {
	t := h.currentTransport()
	if t == nil || !t.IsOpen() {
		return ErrNotConnected
	}
	return h.sendMessage(ctx, t, NewClearAudioMessage())
}

// SendCheckpoint places a named marker in the outbound audio queue. The
// platform replies with a playedStream event carrying the same name once
// all audio queued before the marker has finished playing.
func (h *Handler) SendCheckpoint(ctx context.Context, name string) error {
	t := h.currentTransport()
	if t == nil || !t.IsOpen() {
		return ErrNotConnected
	}
	return h.sendMessage(ctx, t, NewCheckpointMessage(name))
}

// sendMessage stamps the current stream ID, serializes the message and
// writes it to the transport. There is no retry and no timeout at this
// layer: the send completes or fails.
func (h *Handler) sendMessage(ctx context.Context, t Transport, msg Message) error {
	msg.SetStreamID(h.StreamID())
	b, err := json.Marshal(msg)
	if err != nil {
		return NewSendError(msg.MessageType(), fmt.Errorf("marshal message: %w", err))
	}
	if err := t.SendText(ctx, string(b)); err != nil {
		return NewSendError(msg.MessageType(), err)
	}
	h.log("message_sent", map[string]any{"message": msg.MessageType()})
	return nil
}

func (h *Handler) currentTransport() Transport {
	h.transportMu.RLock()
	defer h.transportMu.RUnlock()
	return h.transport
}

func (h *Handler) negotiatedContentType() string {
	if s := h.state.Load(); s != nil && s.mediaFormat != nil && s.mediaFormat.Encoding != "" {
		return s.mediaFormat.Encoding
	}
	return h.cfg.contentType()
}

func (h *Handler) negotiatedSampleRate() int {
	if s := h.state.Load(); s != nil && s.mediaFormat != nil && s.mediaFormat.SampleRate != 0 {
		return s.mediaFormat.SampleRate
	}
	return h.cfg.sampleRate()
}

// Stream state accessors. All reflect the most recent start event and
// read without blocking.

// StreamID returns the current stream ID, or "" before the start event.
func (h *Handler) StreamID() string {
	if s := h.state.Load(); s != nil {
		return s.streamID
	}
	return ""
}

// CallID returns the current call ID, or "" before the start event.
func (h *Handler) CallID() string {
	if s := h.state.Load(); s != nil {
		return s.callID
	}
	return ""
}

// AccountID returns the current account ID, or "" before the start event.
func (h *Handler) AccountID() string {
	if s := h.state.Load(); s != nil {
		return s.accountID
	}
	return ""
}

// MediaFormat returns the negotiated media format, or nil before the
// start event.
func (h *Handler) MediaFormat() *MediaFormat {
	if s := h.state.Load(); s != nil {
		return s.mediaFormat
	}
	return nil
}

// IsConnected reports whether an open transport is attached.
func (h *Handler) IsConnected() bool {
	t := h.currentTransport()
	return t != nil && t.IsOpen()
}

// Transport returns the attached transport, or nil while disconnected.
func (h *Handler) Transport() Transport {
	return h.currentTransport()
}

func (h *Handler) log(event string, fields map[string]any) {
	if h.cfg.StructuredLogger != nil {
		h.cfg.StructuredLogger.Info(event, fields)
	} else if h.cfg.Logger != nil {
		h.cfg.Logger(event, fields)
	}
}

func (h *Handler) logError(event string, fields map[string]any) {
	if h.cfg.StructuredLogger != nil {
		h.cfg.StructuredLogger.Error(event, fields)
	} else if h.cfg.Logger != nil {
		h.cfg.Logger("ERROR: "+event, fields)
	}
}
