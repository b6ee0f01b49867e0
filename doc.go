// Package plivostream provides an event-driven Go SDK for bidirectional
// telephony audio streaming over WebSockets.
//
// The telephony platform connects a WebSocket to your service and sends a
// small JSON protocol: a start event with the stream metadata, media
// events carrying base64 audio chunks, dtmf digits, and lifecycle events.
// The SDK decodes each frame into a typed event, dispatches it to your
// registered callbacks and listeners, and lets you send audio, clear the
// playback buffer, and place checkpoints on the same connection.
//
// Key Features:
//   - Typed decoding of the stream event protocol with forward compatibility
//   - Callback and full-listener registration, mixable on one handler
//   - Outbound playAudio / clearAudio / checkpoint messages stamped with
//     the current stream ID
//   - Transport adapters for nhooyr.io/websocket and gorilla/websocket
//   - http.Handler endpoint that runs one Handler per connection
//
// Basic Usage:
//
//	http.Handle("/stream", &plivostream.Endpoint{
//		Factory: func() *plivostream.Handler {
//			h := plivostream.NewHandler()
//			h.OnStart(func(e *plivostream.StartEvent) {
//				log.Printf("stream started: %s", e.Base().StreamID)
//			})
//			h.OnMedia(func(e *plivostream.MediaEvent) {
//				audio, _ := e.RawMedia()
//				_ = h.SendAudio(context.Background(), audio) // echo
//			})
//			return h
//		},
//	})
//
// A Handler is scoped to one connection, so the Endpoint factory builds a
// fresh one per call. Callbacks run on the connection's read goroutine
// and must not block.
package plivostream
