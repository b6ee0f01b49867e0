package plivostream

// Ptr is a utility function that returns a pointer to the given value.
// This is useful for optional fields that distinguish unset from zero,
// such as the sampleRate on an outgoing media payload.
//
// Example usage:
//
//	msg := NewPlayAudioMessage(payload, "audio/x-mulaw", Ptr(8000))
func Ptr[T any](v T) *T { return &v }
