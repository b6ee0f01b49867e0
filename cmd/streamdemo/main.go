// Command streamdemo runs a standalone server for exercising the stream
// SDK against a real telephony platform.
//
// It exposes a single /stream URL doing double duty: a plain HTTP GET
// returns the answer XML that tells the platform where to connect its
// WebSocket, and a WebSocket upgrade on the same path lands on an echo
// handler that plays the caller's audio back. Expose it with a tunnel
// (for example "ngrok http 8080") and use the https URL as the answer
// URL.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	plivostream "github.com/plivo/plivo-stream-sdk-go"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	addr := getenv("STREAMDEMO_ADDR", ":8080")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	endpoint := &plivostream.Endpoint{
		Factory: func() *plivostream.Handler { return newEchoHandler(logger) },
	}

	e.GET("/stream", func(c echo.Context) error {
		r := c.Request()
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			endpoint.ServeHTTP(c.Response(), r)
			return nil
		}
		return c.Blob(http.StatusOK, "application/xml", []byte(answerXML(r)))
	})

	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

// newEchoHandler builds the per-connection handler: logs the stream
// lifecycle, echoes inbound audio back to the caller, and clears the
// playback buffer when the caller presses 0.
func newEchoHandler(logger *zap.Logger) *plivostream.Handler {
	h, _ := plivostream.NewHandlerWithConfig(plivostream.Config{
		Logger: func(event string, fields map[string]any) {
			logger.Info(event, zap.Any("fields", fields))
		},
	})

	h.OnStart(func(e *plivostream.StartEvent) {
		logger.Info("stream started",
			zap.String("stream_id", h.StreamID()),
			zap.String("call_id", e.CallID()))
	})

	h.OnMedia(func(e *plivostream.MediaEvent) {
		audio, err := e.RawMedia()
		if err != nil {
			logger.Warn("bad media payload", zap.Error(err))
			return
		}
		if err := h.SendAudio(context.Background(), audio); err != nil {
			logger.Warn("echo failed", zap.Error(err))
		}
	})

	h.OnDtmf(func(e *plivostream.DtmfEvent) {
		logger.Info("dtmf", zap.String("digit", e.Digit()))
		if e.Digit() == "0" {
			if err := h.SendClearAudio(context.Background()); err != nil {
				logger.Warn("clear audio failed", zap.Error(err))
			}
		}
	})

	h.OnStop(func(e *plivostream.StopEvent) {
		logger.Info("stream stopped", zap.String("reason", e.Reason))
	})

	return h
}

// answerXML renders the answer document pointing the platform at this
// server's WebSocket URL, honoring tunnel proxy headers.
func answerXML(r *http.Request) string {
	proto := "ws"
	if strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") || r.TLS != nil {
		proto = "wss"
	}
	wsURL := fmt.Sprintf("%s://%s/stream", proto, r.Host)

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<Response>
    <Speak>Hello World</Speak>
    <Stream keepCallAlive="true" bidirectional="true">
        %s
    </Stream>
</Response>
`, wsURL)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
