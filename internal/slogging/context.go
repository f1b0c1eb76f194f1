package slogging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Context keys set by the HTTP layer once a room token has been verified
const (
	ContextKeyUserID = "userId"
	ContextKeyRoomID = "roomId"
	contextKeyLogger = "logger"
)

// GinContextLike defines a minimal interface for contexts that can be used with the logger
type GinContextLike interface {
	Get(key any) (any, bool)
	GetHeader(key string) string
	ClientIP() string
}

// ContextLogger carries request-scoped attributes
type ContextLogger struct {
	logger  *Logger
	slogger *slog.Logger
	ctx     context.Context
}

// WithContext returns a context-aware logger that includes request information
func (l *Logger) WithContext(c GinContextLike) *ContextLogger {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
		if setter, ok := c.(interface{ Header(string, string) }); ok {
			setter.Header("X-Request-ID", requestID)
		}
	}

	attrs := []any{
		slog.String("request_id", requestID),
		slog.String("client_ip", c.ClientIP()),
	}
	if userID, ok := c.Get(ContextKeyUserID); ok {
		attrs = append(attrs, slog.String("user_id", fmt.Sprintf("%v", userID)))
	}
	if roomID, ok := c.Get(ContextKeyRoomID); ok {
		attrs = append(attrs, slog.String("room_id", fmt.Sprintf("%v", roomID)))
	}

	return &ContextLogger{
		logger:  l,
		slogger: l.slogger.With(attrs...),
		ctx:     context.Background(),
	}
}

// GetContextLogger retrieves the request logger stored by LoggerMiddleware,
// falling back to the global logger.
func GetContextLogger(c *gin.Context) *ContextLogger {
	if v, ok := c.Get(contextKeyLogger); ok {
		if logger, ok := v.(*ContextLogger); ok {
			return logger
		}
	}
	return Get().WithContext(c)
}

func (cl *ContextLogger) logf(level LogLevel, format string, args ...any) {
	if cl.logger.level > level {
		return
	}
	message := format
	if len(args) > 0 {
		message = fmt.Sprintf(format, args...)
	}
	cl.slogger.Log(cl.ctx, level.toSlogLevel(), SanitizeLogMessage(message))
}

// Debug logs a debug-level message with request attributes
func (cl *ContextLogger) Debug(format string, args ...any) { cl.logf(LogLevelDebug, format, args...) }

// Info logs an info-level message with request attributes
func (cl *ContextLogger) Info(format string, args ...any) { cl.logf(LogLevelInfo, format, args...) }

// Warn logs a warning-level message with request attributes
func (cl *ContextLogger) Warn(format string, args ...any) { cl.logf(LogLevelWarn, format, args...) }

// Error logs an error-level message with request attributes
func (cl *ContextLogger) Error(format string, args ...any) { cl.logf(LogLevelError, format, args...) }

// DebugCtx logs a structured debug message
func (cl *ContextLogger) DebugCtx(msg string, attrs ...slog.Attr) {
	cl.slogger.LogAttrs(cl.ctx, slog.LevelDebug, SanitizeLogMessage(msg), attrs...)
}

// InfoCtx logs a structured info message
func (cl *ContextLogger) InfoCtx(msg string, attrs ...slog.Attr) {
	cl.slogger.LogAttrs(cl.ctx, slog.LevelInfo, SanitizeLogMessage(msg), attrs...)
}

// WarnCtx logs a structured warning message
func (cl *ContextLogger) WarnCtx(msg string, attrs ...slog.Attr) {
	cl.slogger.LogAttrs(cl.ctx, slog.LevelWarn, SanitizeLogMessage(msg), attrs...)
}

// ErrorCtx logs a structured error message
func (cl *ContextLogger) ErrorCtx(msg string, attrs ...slog.Attr) {
	cl.slogger.LogAttrs(cl.ctx, slog.LevelError, SanitizeLogMessage(msg), attrs...)
}
