package plivostream

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("MaxSendBytes", "-1", "cannot be negative")

	if !errors.Is(err, ErrInvalidConfig) {
		t.Error("ConfigError must match ErrInvalidConfig")
	}
	msg := err.Error()
	if !strings.Contains(msg, "MaxSendBytes") || !strings.Contains(msg, "-1") || !strings.Contains(msg, "cannot be negative") {
		t.Errorf("error message missing detail: %q", msg)
	}

	// Without a value the message omits the value clause.
	noValue := NewConfigError("DefaultSampleRate", "", "cannot be negative")
	if strings.Contains(noValue.Error(), "value:") {
		t.Errorf("expected value clause to be omitted: %q", noValue.Error())
	}
}

func TestParseError(t *testing.T) {
	cause := fmt.Errorf("unexpected end of JSON input")
	err := NewParseError([]byte(`{"event":`), cause)

	if !errors.Is(err, ErrParseFailure) {
		t.Error("ParseError must match ErrParseFailure")
	}
	if !errors.Is(err, cause) {
		t.Error("ParseError must unwrap to its cause")
	}
	if string(err.Raw) != `{"event":` {
		t.Errorf("raw frame not preserved: %q", err.Raw)
	}
	if !strings.Contains(err.Error(), cause.Error()) {
		t.Errorf("error message missing cause: %q", err.Error())
	}
}

func TestSendError(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := NewSendError(MessagePlayAudio, cause)

	if !errors.Is(err, ErrSendFailed) {
		t.Error("SendError must match ErrSendFailed")
	}
	if !errors.Is(err, cause) {
		t.Error("SendError must unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "playAudio") {
		t.Errorf("error message missing message type: %q", err.Error())
	}
}

func TestCallbackError(t *testing.T) {
	t.Run("error panic value", func(t *testing.T) {
		cause := fmt.Errorf("boom")
		err := NewCallbackError("onMedia", EventMedia, cause)

		if !errors.Is(err, cause) {
			t.Error("CallbackError must unwrap to the recovered error")
		}
		if err.Callback != "onMedia" || err.EventType != EventMedia {
			t.Errorf("callback identity not preserved: %+v", err)
		}
		if !strings.Contains(err.Error(), "onMedia") || !strings.Contains(err.Error(), "media") {
			t.Errorf("error message missing detail: %q", err.Error())
		}
	})

	t.Run("non-error panic value", func(t *testing.T) {
		err := NewCallbackError("listener.OnStart", EventStart, "string panic")

		if err.Cause == nil {
			t.Fatal("non-error panic values must be converted to an error")
		}
		if err.Cause.Error() != "string panic" {
			t.Errorf("panic value not carried through: %q", err.Cause.Error())
		}
	})
}

func TestSentinelErrorsDistinct(t *testing.T) {
	sentinels := []error{ErrNotConnected, ErrInvalidConfig, ErrParseFailure, ErrSendFailed}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel %v must not match %v", a, b)
			}
		}
	}
	for _, s := range sentinels {
		if !strings.HasPrefix(s.Error(), "plivostream: ") {
			t.Errorf("sentinel missing package prefix: %q", s.Error())
		}
	}
}
