package slogging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected LogLevel
	}{
		{"debug lowercase", "debug", LogLevelDebug},
		{"debug uppercase", "DEBUG", LogLevelDebug},
		{"info lowercase", "info", LogLevelInfo},
		{"warn lowercase", "warn", LogLevelWarn},
		{"warning lowercase", "warning", LogLevelWarn},
		{"error uppercase", "ERROR", LogLevelError},
		{"unknown defaults to info", "unknown", LogLevelInfo},
		{"empty defaults to info", "", LogLevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLogLevel(tt.input))
		})
	}
}

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LogLevelDebug, "DEBUG"},
		{LogLevelInfo, "INFO"},
		{LogLevelWarn, "WARN"},
		{LogLevelError, "ERROR"},
		{LogLevel(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.level.String())
		})
	}
}

func TestLogLevel_toSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LogLevelDebug.toSlogLevel())
	assert.Equal(t, slog.LevelInfo, LogLevelInfo.toSlogLevel())
	assert.Equal(t, slog.LevelWarn, LogLevelWarn.toSlogLevel())
	assert.Equal(t, slog.LevelError, LogLevelError.toSlogLevel())
	assert.Equal(t, slog.LevelInfo, LogLevel(99).toSlogLevel())
}

func TestNewLogger(t *testing.T) {
	tempDir := t.TempDir()

	t.Run("creates logger with default config", func(t *testing.T) {
		logger, err := NewLogger(Config{LogDir: tempDir})
		require.NoError(t, err)
		defer func() { _ = logger.Close() }()

		assert.NotNil(t, logger.slogger)
		assert.NotNil(t, logger.fileLogger)
		assert.Equal(t, filepath.Join(tempDir, "drawroom.log"), logger.fileLogger.Filename)
	})

	t.Run("creates logger with dev mode", func(t *testing.T) {
		logger, err := NewLogger(Config{IsDev: true, Level: LogLevelDebug, LogDir: tempDir})
		require.NoError(t, err)
		defer func() { _ = logger.Close() }()

		assert.True(t, logger.isDev)
		assert.Equal(t, LogLevelDebug, logger.Level())
	})

	t.Run("creates missing log directory", func(t *testing.T) {
		dir := filepath.Join(tempDir, "nested", "logs")
		logger, err := NewLogger(Config{LogDir: dir})
		require.NoError(t, err)
		defer func() { _ = logger.Close() }()

		_, statErr := os.Stat(dir)
		assert.NoError(t, statErr)
	})

	t.Run("rejects invalid redaction pattern", func(t *testing.T) {
		_, err := NewLogger(Config{
			LogDir: tempDir,
			RedactionConfig: &RedactionConfig{
				Enabled: true,
				Rules:   []RedactionRule{{FieldPattern: "(", Action: RedactionOmit}},
			},
		})
		assert.Error(t, err)
	})
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTestLogger(&buf, LogLevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message %d", 1)
	logger.Error("error message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message 1")
	assert.Contains(t, out, "error message")
}

func TestLogger_SanitizesInjectedNewlines(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTestLogger(&buf, LogLevelDebug)

	logger.Info("user=%s", "alice\nlevel=ERROR msg=forged")

	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("\n")))
	assert.Contains(t, buf.String(), "alice level=ERROR msg=forged")
}

func TestLogger_ContextMethods(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTestLogger(&buf, LogLevelDebug)
	ctx := context.Background()

	logger.DebugCtx(ctx, "debug context message", slog.String("room_id", "r1"))
	logger.InfoCtx(ctx, "info context message", slog.Int("count", 5))

	out := buf.String()
	assert.Contains(t, out, "room_id=r1")
	assert.Contains(t, out, "count=5")
}

func TestLogger_Close(t *testing.T) {
	t.Run("close with file logger", func(t *testing.T) {
		logger, err := NewLogger(Config{LogDir: t.TempDir()})
		require.NoError(t, err)
		assert.NoError(t, logger.Close())
	})

	t.Run("close without file logger", func(t *testing.T) {
		logger := &Logger{}
		assert.NoError(t, logger.Close())
	})
}
