package plivostream

// Config holds the optional knobs for a stream Handler. The zero value is
// valid: defaults cover the standard telephony audio format and no
// logging occurs until a logger is provided.
type Config struct {
	// DefaultContentType is the outbound audio content type used when no
	// media format has been negotiated and the caller does not supply one.
	// Defaults to DefaultContentType ("audio/x-mulaw").
	DefaultContentType string

	// DefaultSampleRate is the outbound sample rate in Hz used when no
	// media format has been negotiated and the caller does not supply one.
	// Defaults to DefaultSampleRate (8000).
	DefaultSampleRate int

	// MaxSendBytes caps the size of one outbound audio chunk before
	// base64 encoding. Defaults to DefaultMaxSendBytes.
	MaxSendBytes int

	// Logger is called for significant events and can be used for
	// debugging and monitoring. The fields parameter contains structured
	// data relevant to each event.
	// If nil, no logging occurs.
	Logger func(event string, fields map[string]any)

	// StructuredLogger provides leveled structured logging. If both
	// Logger and StructuredLogger are provided, StructuredLogger takes
	// precedence. Use NewLogger() or NewLoggerFromEnv() to create one.
	StructuredLogger *Logger
}

// DefaultMaxSendBytes is the default cap on one outbound audio chunk.
const DefaultMaxSendBytes = 1024 * 1024

// ValidateConfig performs configuration validation.
func ValidateConfig(cfg Config) error {
	if cfg.DefaultSampleRate < 0 {
		return NewConfigError("DefaultSampleRate", "", "cannot be negative")
	}
	if cfg.MaxSendBytes < 0 {
		return NewConfigError("MaxSendBytes", "", "cannot be negative")
	}
	return nil
}

// contentType returns the configured fallback content type.
func (c Config) contentType() string {
	if c.DefaultContentType != "" {
		return c.DefaultContentType
	}
	return DefaultContentType
}

// sampleRate returns the configured fallback sample rate.
func (c Config) sampleRate() int {
	if c.DefaultSampleRate != 0 {
		return c.DefaultSampleRate
	}
	return DefaultSampleRate
}

// maxSendBytes returns the configured outbound chunk cap.
func (c Config) maxSendBytes() int {
	if c.MaxSendBytes != 0 {
		return c.MaxSendBytes
	}
	return DefaultMaxSendBytes
}
