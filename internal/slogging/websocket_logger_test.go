package slogging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func useTestLogger(t *testing.T, level LogLevel) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := globalLogger
	globalLogger = NewTestLogger(&buf, level)
	t.Cleanup(func() { globalLogger = prev })
	return &buf
}

func TestLogWebSocketConnection(t *testing.T) {
	buf := useTestLogger(t, LogLevelInfo)

	LogWebSocketConnection("connected", "s1", "u1", "r1", slog.String("role", "admin"))

	out := buf.String()
	assert.Contains(t, out, `msg="WebSocket connection event"`)
	assert.Contains(t, out, "event=connected")
	assert.Contains(t, out, "session_id=s1")
	assert.Contains(t, out, "room_id=r1")
	assert.Contains(t, out, "role=admin")
}

func TestLogWebSocketMessage(t *testing.T) {
	frame := []byte(`{"channel":"canvas","operation":"create","text":"secret sketch"}`)

	t.Run("envelope only", func(t *testing.T) {
		buf := useTestLogger(t, LogLevelDebug)
		LogWebSocketMessage(WSMessageInbound, "s1", "u1", "r1", frame, WebSocketLoggingConfig{Enabled: true})

		out := buf.String()
		assert.Contains(t, out, "direction=INBOUND")
		assert.Contains(t, out, "channel=canvas")
		assert.Contains(t, out, "operation=create")
		assert.NotContains(t, out, "secret sketch")
	})

	t.Run("oversized frame", func(t *testing.T) {
		buf := useTestLogger(t, LogLevelDebug)
		LogWebSocketMessage(WSMessageOutbound, "s1", "u1", "r1", frame, WebSocketLoggingConfig{Enabled: true, MaxMessageSize: 8})

		assert.Contains(t, buf.String(), "truncated=true")
		assert.NotContains(t, buf.String(), "operation=")
	})

	t.Run("disabled", func(t *testing.T) {
		buf := useTestLogger(t, LogLevelDebug)
		LogWebSocketMessage(WSMessageInbound, "s1", "u1", "r1", frame, WebSocketLoggingConfig{})
		assert.Empty(t, buf.String())
	})

	t.Run("above debug level", func(t *testing.T) {
		buf := useTestLogger(t, LogLevelInfo)
		LogWebSocketMessage(WSMessageInbound, "s1", "u1", "r1", frame, WebSocketLoggingConfig{Enabled: true})
		assert.Equal(t, 0, strings.Count(buf.String(), "\n"))
	})
}
