package slogging

import (
	"context"
	"encoding/json"
	"log/slog"
)

// WebSocketLoggingConfig holds configuration for WebSocket message logging
type WebSocketLoggingConfig struct {
	Enabled        bool
	MaxMessageSize int64 // larger frames are logged by size only
}

// WSMessageDirection indicates the direction of the WebSocket message
type WSMessageDirection string

const (
	WSMessageInbound  WSMessageDirection = "INBOUND"
	WSMessageOutbound WSMessageDirection = "OUTBOUND"
)

// LogWebSocketMessage logs a broker frame at debug level. Only the
// envelope fields are logged, never drawing payloads.
func LogWebSocketMessage(direction WSMessageDirection, sessionID, userID, roomID string, data []byte, config WebSocketLoggingConfig) {
	if !config.Enabled {
		return
	}
	logger := Get()
	if logger.level > LogLevelDebug {
		return
	}

	attrs := []slog.Attr{
		slog.String("direction", string(direction)),
		slog.String("session_id", sessionID),
		slog.String("user_id", userID),
		slog.String("room_id", roomID),
		slog.Int("size_bytes", len(data)),
	}

	if config.MaxMessageSize > 0 && int64(len(data)) > config.MaxMessageSize {
		attrs = append(attrs, slog.Bool("truncated", true))
		logger.DebugCtx(context.Background(), "WebSocket message", attrs...)
		return
	}

	var envelope struct {
		Channel   string `json:"channel"`
		Operation string `json:"operation"`
	}
	if json.Unmarshal(data, &envelope) == nil {
		attrs = append(attrs,
			slog.String("channel", envelope.Channel),
			slog.String("operation", envelope.Operation),
		)
	} else {
		attrs = append(attrs, slog.Bool("malformed", true))
	}
	logger.DebugCtx(context.Background(), "WebSocket message", attrs...)
}

// LogWebSocketConnection logs connection lifecycle events
func LogWebSocketConnection(event, sessionID, userID, roomID string, extra ...slog.Attr) {
	attrs := append([]slog.Attr{
		slog.String("event", event),
		slog.String("session_id", sessionID),
		slog.String("user_id", userID),
		slog.String("room_id", roomID),
	}, extra...)
	Get().InfoCtx(context.Background(), "WebSocket connection event", attrs...)
}
