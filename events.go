package plivostream

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
)

// Incoming event discriminator values. The telephony platform tags every
// JSON frame with one of these in its "event" field.
const (
	EventStart        = "start"
	EventMedia        = "media"
	EventDtmf         = "dtmf"
	EventStop         = "stop"
	EventPlayedStream = "playedStream"
	EventClearedAudio = "clearedAudio"
)

// envelope is used for initial JSON parsing to determine the event type
// before unmarshaling into the specific event struct.
type envelope struct {
	Event string `json:"event"`
}

// Event is implemented by every incoming stream event variant.
// Use a type switch to recover the concrete event, or Base() to read the
// fields shared by all variants.
type Event interface {
	// Type returns the wire discriminator ("start", "media", ...).
	// For unrecognized events the original discriminator string is preserved.
	Type() string
	// Base returns the envelope fields common to all variants.
	Base() *StreamEvent
}

// StreamEvent holds the fields common to every incoming event. It is also
// the decode target for events with an unrecognized discriminator, so a
// newer platform event never fails to parse.
type StreamEvent struct {
	Event          string `json:"event"`          // Wire discriminator
	SequenceNumber int64  `json:"sequenceNumber"` // Monotonic per stream (not enforced here)
	StreamID       string `json:"streamId"`       // Stream this event belongs to
}

func (e *StreamEvent) Type() string { return e.Event }

func (e *StreamEvent) Base() *StreamEvent { return e }

// MediaFormat describes how raw audio bytes on a stream are encoded.
type MediaFormat struct {
	Encoding   string `json:"encoding"`   // e.g. "audio/x-mulaw"
	SampleRate int    `json:"sampleRate"` // Sample rate in Hz (e.g. 8000)
}

// StartData is the payload of a start event: the metadata for the stream
// that was just established.
type StartData struct {
	StreamID         string            `json:"streamId"`         // Stream identifier
	CallID           string            `json:"callId"`           // Call this stream belongs to
	AccountID        string            `json:"accountId"`        // Owning account
	Tracks           []string          `json:"tracks"`           // Track names, in platform order
	MediaFormat      *MediaFormat      `json:"mediaFormat"`      // Negotiated inbound audio format
	CustomParameters map[string]string `json:"customParameters"` // Opaque caller-supplied parameters
}

// MediaData is the payload of a media event. Payload holds base64-encoded
// audio; decode it through MediaEvent.RawMedia.
type MediaData struct {
	Track     string `json:"track"`     // Track the audio arrived on
	Chunk     int64  `json:"chunk"`     // Chunk number within the stream
	Timestamp string `json:"timestamp"` // String-encoded milliseconds, may be empty
	Payload   string `json:"payload"`   // Base64-encoded audio bytes
}

// TimestampMS returns the media timestamp in milliseconds. Empty, missing
// and malformed timestamps all yield zero; read the Timestamp field
// directly if the raw string matters.
func (d *MediaData) TimestampMS() int64 {
	if d == nil || d.Timestamp == "" {
		return 0
	}
	ms, err := strconv.ParseInt(d.Timestamp, 10, 64)
	if err != nil {
		return 0
	}
	return ms
}

// DtmfData is the payload of a dtmf event.
type DtmfData struct {
	Digit string `json:"digit"` // One of "0"-"9", "*", "#"
	Track string `json:"track"` // Track the tone was detected on
}

// StartEvent is sent once when a new stream starts and carries the stream
// metadata. The handler records it as the connection's stream state.
type StartEvent struct {
	StreamEvent
	Start *StartData `json:"start"`
}

// CallID returns the call ID from the start payload, or "" if absent.
func (e *StartEvent) CallID() string {
	if e.Start == nil {
		return ""
	}
	return e.Start.CallID
}

// AccountID returns the account ID from the start payload, or "" if absent.
func (e *StartEvent) AccountID() string {
	if e.Start == nil {
		return ""
	}
	return e.Start.AccountID
}

// MediaEvent carries one chunk of inbound audio.
type MediaEvent struct {
	StreamEvent
	Media *MediaData `json:"media"`
}

// RawMedia decodes and returns the audio bytes from the base64 payload.
// A missing or empty payload yields a zero-length slice, never an error.
func (e *MediaEvent) RawMedia() ([]byte, error) {
	if e.Media == nil || e.Media.Payload == "" {
		return []byte{}, nil
	}
	return base64.StdEncoding.DecodeString(e.Media.Payload)
}

// Track returns the track name from the media payload, or "" if absent.
func (e *MediaEvent) Track() string {
	if e.Media == nil {
		return ""
	}
	return e.Media.Track
}

// Chunk returns the chunk number from the media payload, or 0 if absent.
func (e *MediaEvent) Chunk() int64 {
	if e.Media == nil {
		return 0
	}
	return e.Media.Chunk
}

// DtmfEvent is sent when a DTMF tone is detected on the call.
type DtmfEvent struct {
	StreamEvent
	Dtmf *DtmfData `json:"dtmf"`
}

// Digit returns the detected keypad digit, or "" if absent.
func (e *DtmfEvent) Digit() string {
	if e.Dtmf == nil {
		return ""
	}
	return e.Dtmf.Digit
}

// Track returns the track the tone was detected on, or "" if absent.
func (e *DtmfEvent) Track() string {
	if e.Dtmf == nil {
		return ""
	}
	return e.Dtmf.Track
}

// StopEvent is sent when the stream ends.
type StopEvent struct {
	StreamEvent
	Reason string `json:"reason"`
}

// PlayedStreamEvent is sent once all audio queued before a checkpoint has
// finished playing. Name echoes the checkpoint name from SendCheckpoint.
type PlayedStreamEvent struct {
	StreamEvent
	Name string `json:"name"`
}

// ClearedAudioEvent is sent after the platform clears its audio buffer.
type ClearedAudioEvent struct {
	StreamEvent
}

// ParseStreamEvent decodes one JSON text frame into its typed event.
// The variant is selected solely by the "event" field; unknown top-level
// fields are ignored for forward compatibility. An absent or unrecognized
// discriminator yields the base *StreamEvent rather than an error.
// Structurally invalid JSON, or a known variant whose payload cannot be
// decoded, is reported as a *ParseError.
func ParseStreamEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, NewParseError(data, err)
	}

	switch env.Event {
	case EventStart:
		var e StartEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, NewParseError(data, err)
		}
		return &e, nil
	case EventMedia:
		var e MediaEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, NewParseError(data, err)
		}
		return &e, nil
	case EventDtmf:
		var e DtmfEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, NewParseError(data, err)
		}
		return &e, nil
	case EventStop:
		var e StopEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, NewParseError(data, err)
		}
		return &e, nil
	case EventPlayedStream:
		var e PlayedStreamEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, NewParseError(data, err)
		}
		return &e, nil
	case EventClearedAudio:
		var e ClearedAudioEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, NewParseError(data, err)
		}
		return &e, nil
	default:
		var e StreamEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, NewParseError(data, err)
		}
		return &e, nil
	}
}
