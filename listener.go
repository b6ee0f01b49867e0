package plivostream

// StreamEventListener receives every stream lifecycle and media event for
// one connection. Embed NoopStreamListener to implement only the methods
// you care about.
//
// Listeners registered on a Handler fire after the matching single-slot
// callback, in registration order. Implementations are invoked on the
// transport's read goroutine and should not block.
type StreamEventListener interface {
	// OnConnected is called when the WebSocket connection is established.
	OnConnected()

	// OnStart is called when a stream starts with metadata about the call.
	OnStart(event *StartEvent)

	// OnMedia is called for each chunk of inbound audio.
	OnMedia(event *MediaEvent)

	// OnDtmf is called when a DTMF tone is detected.
	OnDtmf(event *DtmfEvent)

	// OnStop is called when the stream stops.
	OnStop(event *StopEvent)

	// OnPlayedStream is called when audio buffered before a checkpoint has
	// finished playing.
	OnPlayedStream(event *PlayedStreamEvent)

	// OnClearedAudio is called after the platform clears its audio buffer.
	OnClearedAudio(event *ClearedAudioEvent)

	// OnDisconnected is called when the connection closes. reason may be
	// empty when the peer gave none.
	OnDisconnected(reason string)

	// OnError is called for decode failures, callback panics and other
	// errors surfaced on the connection's error path.
	OnError(err error)
}

// NoopStreamListener implements StreamEventListener with empty methods.
// Embed it to override only the events you need.
type NoopStreamListener struct{}

func (NoopStreamListener) OnConnected() {}

func (NoopStreamListener) OnStart(*StartEvent) {}

func (NoopStreamListener) OnMedia(*MediaEvent) {}

func (NoopStreamListener) OnDtmf(*DtmfEvent) {}

func (NoopStreamListener) OnStop(*StopEvent) {}

func (NoopStreamListener) OnPlayedStream(*PlayedStreamEvent) {}

func (NoopStreamListener) OnClearedAudio(*ClearedAudioEvent) {}

func (NoopStreamListener) OnDisconnected(string) {}

func (NoopStreamListener) OnError(error) {}
