package plivostream

import (
	"errors"
	"fmt"
)

// Common error variables
var (
	// ErrNotConnected is returned when an outbound send is attempted while
	// no transport is attached or the transport has been closed. The send
	// is never retried internally; reconnect and send again.
	ErrNotConnected = errors.New("plivostream: transport is not connected")

	// ErrInvalidConfig is returned when configuration fields are invalid.
	ErrInvalidConfig = errors.New("plivostream: invalid configuration")

	// ErrParseFailure is returned when an incoming frame cannot be decoded.
	ErrParseFailure = errors.New("plivostream: invalid event data")

	// ErrSendFailed is returned when an outgoing message cannot be
	// serialized or written to the transport.
	ErrSendFailed = errors.New("plivostream: send failed")
)

// ConfigError represents a configuration validation error.
// It names the configuration field that is invalid.
type ConfigError struct {
	Field   string // The configuration field that is invalid
	Value   string // The invalid value (if safe to log)
	Message string // Detailed error message
}

func (e *ConfigError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("plivostream: invalid config field %q (value: %q): %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("plivostream: invalid config field %q: %s", e.Field, e.Message)
}

// Is implements error matching for ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// ParseError reports an incoming frame that could not be decoded into a
// stream event. The frame is never dispatched; the error is routed to the
// handler's error path instead.
type ParseError struct {
	Raw   []byte // The raw frame text
	Cause error  // The underlying JSON error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("plivostream: failed to parse stream event: %v", e.Cause)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Is implements error matching for ParseError.
func (e *ParseError) Is(target error) bool {
	return target == ErrParseFailure
}

// SendError reports a failed outbound send, wrapping the serialization or
// transport error that caused it.
type SendError struct {
	MessageType string // The outgoing message discriminator
	Cause       error  // The underlying error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("plivostream: failed to send %s message: %v", e.MessageType, e.Cause)
}

// Unwrap returns the underlying error.
func (e *SendError) Unwrap() error {
	return e.Cause
}

// Is implements error matching for SendError.
func (e *SendError) Is(target error) bool {
	return target == ErrSendFailed
}

// CallbackError reports a panic recovered from a registered callback or
// listener. It is caught at the dispatch boundary so one misbehaving
// listener cannot block its siblings or crash the connection.
type CallbackError struct {
	Callback  string // Name of the callback or listener method
	EventType string // Event being dispatched when the panic occurred
	Cause     error  // The recovered panic value
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("plivostream: callback %s panicked handling %s event: %v", e.Callback, e.EventType, e.Cause)
}

// Unwrap returns the recovered panic value as an error.
func (e *CallbackError) Unwrap() error {
	return e.Cause
}

// Helper functions for creating specific errors

// NewConfigError creates a new configuration error.
func NewConfigError(field, value, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// NewParseError creates a new parse error for a raw frame.
func NewParseError(raw []byte, cause error) *ParseError {
	return &ParseError{
		Raw:   raw,
		Cause: cause,
	}
}

// NewSendError creates a new send error.
func NewSendError(messageType string, cause error) *SendError {
	return &SendError{
		MessageType: messageType,
		Cause:       cause,
	}
}

// NewCallbackError creates a callback error from a recovered panic value.
func NewCallbackError(callback, eventType string, recovered any) *CallbackError {
	cause, ok := recovered.(error)
	if !ok {
		cause = fmt.Errorf("%v", recovered)
	}
	return &CallbackError{
		Callback:  callback,
		EventType: eventType,
		Cause:     cause,
	}
}
