package plivostream

// Outgoing message discriminator values.
const (
	MessagePlayAudio  = "playAudio"
	MessageMedia      = "media"
	MessageClearAudio = "clearAudio"
	MessageCheckpoint = "checkpoint"
)

// Message is implemented by every outgoing message variant. The handler
// stamps the current stream ID onto a message immediately before send;
// callers never set it directly.
type Message interface {
	// MessageType returns the wire discriminator ("playAudio", ...).
	MessageType() string
	// SetStreamID stamps the stream the message targets.
	SetStreamID(id string)
}

// OutgoingMessage is the envelope shared by all messages sent back to the
// platform. StreamID is omitted from serialization while unset.
type OutgoingMessage struct {
	Event    string `json:"event"`
	StreamID string `json:"streamId,omitempty"`
}

func (m *OutgoingMessage) MessageType() string { return m.Event }

func (m *OutgoingMessage) SetStreamID(id string) { m.StreamID = id }

// MediaPayload is the nested audio payload of playAudio and media
// messages. ContentType and SampleRate are omitted entirely when unset;
// downstream consumers treat absence as "use the negotiated default", so
// they must never serialize as null.
type MediaPayload struct {
	ContentType string `json:"contentType,omitempty"` // e.g. "audio/x-mulaw"
	SampleRate  *int   `json:"sampleRate,omitempty"`  // Sample rate in Hz
	Payload     string `json:"payload"`               // Base64-encoded audio
}

// PlayAudioMessage queues audio for playback to the caller.
type PlayAudioMessage struct {
	OutgoingMessage
	Media MediaPayload `json:"media"`
}

// NewPlayAudioMessage builds a playAudio message. payload must already be
// base64-encoded. Pass "" / nil to leave contentType / sampleRate off the
// wire.
func NewPlayAudioMessage(payload, contentType string, sampleRate *int) *PlayAudioMessage {
	return &PlayAudioMessage{
		OutgoingMessage: OutgoingMessage{Event: MessagePlayAudio},
		Media: MediaPayload{
			ContentType: contentType,
			SampleRate:  sampleRate,
			Payload:     payload,
		},
	}
}

// MediaMessage carries outbound audio on the media channel. It shares the
// playAudio payload shape under a different discriminator.
type MediaMessage struct {
	OutgoingMessage
	Media MediaPayload `json:"media"`
}

// NewMediaMessage builds a media message. payload must already be
// base64-encoded.
func NewMediaMessage(payload, contentType string, sampleRate *int) *MediaMessage {
	return &MediaMessage{
		OutgoingMessage: OutgoingMessage{Event: MessageMedia},
		Media: MediaPayload{
			ContentType: contentType,
			SampleRate:  sampleRate,
			Payload:     payload,
		},
	}
}

// ClearAudioMessage tells the platform to drop any buffered or currently
// playing audio on the stream.
type ClearAudioMessage struct {
	OutgoingMessage
}

// NewClearAudioMessage builds a clearAudio message.
func NewClearAudioMessage() *ClearAudioMessage {
	return &ClearAudioMessage{OutgoingMessage: OutgoingMessage{Event: MessageClearAudio}}
}

// CheckpointMessage places a named marker in the outbound audio queue.
// The platform replies with a playedStream event carrying the same name
// once everything queued before the marker has finished playing.
type CheckpointMessage struct {
	OutgoingMessage
	Name string `json:"name"`
}

// NewCheckpointMessage builds a checkpoint message.
func NewCheckpointMessage(name string) *CheckpointMessage {
	return &CheckpointMessage{
		OutgoingMessage: OutgoingMessage{Event: MessageCheckpoint},
		Name:            name,
	}
}
