package slogging

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// RedactionAction defines how sensitive data should be handled
type RedactionAction string

const (
	// RedactionOmit removes the field entirely from logs
	RedactionOmit RedactionAction = "omit"
	// RedactionObfuscate replaces the value with [REDACTED]
	RedactionObfuscate RedactionAction = "obfuscate"
	// RedactionPartial shows first and last few characters with middle redacted
	RedactionPartial RedactionAction = "partial"
)

const omitMarker = "__REDACT_OMIT__"

// RedactionRule matches attribute keys and applies an action to their values
type RedactionRule struct {
	FieldPattern    string          `yaml:"field_pattern" json:"field_pattern"`
	Action          RedactionAction `yaml:"action" json:"action"`
	compiledPattern *regexp.Regexp
}

// RedactionConfig holds all redaction rules
type RedactionConfig struct {
	Enabled bool            `yaml:"enabled" json:"enabled"`
	Rules   []RedactionRule `yaml:"rules" json:"rules"`
}

// DefaultRedactionConfig redacts room tokens, secrets and cookies
func DefaultRedactionConfig() RedactionConfig {
	return RedactionConfig{
		Enabled: true,
		Rules: []RedactionRule{
			{FieldPattern: "(?i)(authorization|bearer|token|jwt|roomtoken)", Action: RedactionPartial},
			{FieldPattern: "(?i)(password|secret|api_key|private_key)", Action: RedactionOmit},
			{FieldPattern: "(?i)(cookie|set-cookie)", Action: RedactionPartial},
		},
	}
}

// CompileRules compiles regex patterns for all rules
func (rc *RedactionConfig) CompileRules() error {
	for i := range rc.Rules {
		pattern, err := regexp.Compile(rc.Rules[i].FieldPattern)
		if err != nil {
			return fmt.Errorf("failed to compile redaction pattern '%s': %w", rc.Rules[i].FieldPattern, err)
		}
		rc.Rules[i].compiledPattern = pattern
	}
	return nil
}

func (rule *RedactionRule) apply(value slog.Value) slog.Value {
	switch rule.Action {
	case RedactionOmit:
		return slog.StringValue(omitMarker)
	case RedactionObfuscate:
		return slog.StringValue("[REDACTED]")
	case RedactionPartial:
		return slog.StringValue(partialRedactValue(value.String()))
	default:
		return value
	}
}

// partialRedactValue keeps enough of a credential to correlate log lines
func partialRedactValue(value string) string {
	if value == "" {
		return value
	}
	if len(value) <= 12 {
		return "[REDACTED]"
	}
	if strings.HasPrefix(strings.ToLower(value), "bearer ") {
		return value[:7] + partialRedactValue(value[7:])
	}

	// JWT: keep a slice of the header and the tail of the signature
	if strings.Count(value, ".") == 2 && strings.HasPrefix(value, "eyJ") {
		parts := strings.Split(value, ".")
		header, signature := parts[0], parts[2]
		if len(header) > 8 {
			header = header[:8] + "...REDACTED..."
		}
		if len(signature) > 4 {
			signature = "...REDACTED..." + signature[len(signature)-4:]
		}
		return header + ".REDACTED." + signature
	}

	visibleStart, visibleEnd := 6, 4
	if len(value) < visibleStart+visibleEnd+10 {
		visibleStart, visibleEnd = 3, 2
	}
	return value[:visibleStart] + "...REDACTED..." + value[len(value)-visibleEnd:]
}

// redactionHandler wraps another slog.Handler to apply redaction rules
type redactionHandler struct {
	handler slog.Handler
	config  RedactionConfig
}

// NewRedactionHandler creates a new redaction handler
func NewRedactionHandler(handler slog.Handler, config RedactionConfig) (slog.Handler, error) {
	if err := config.CompileRules(); err != nil {
		return nil, err
	}
	return &redactionHandler{handler: handler, config: config}, nil
}

func (h *redactionHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *redactionHandler) Handle(ctx context.Context, record slog.Record) error {
	if !h.config.Enabled {
		return h.handler.Handle(ctx, record)
	}

	redacted := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		if a := h.redactAttribute(attr); a.Key != "" {
			redacted.AddAttrs(a)
		}
		return true
	})
	return h.handler.Handle(ctx, redacted)
}

func (h *redactionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	kept := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		if a := h.redactAttribute(attr); a.Key != "" {
			kept = append(kept, a)
		}
	}
	return &redactionHandler{handler: h.handler.WithAttrs(kept), config: h.config}
}

func (h *redactionHandler) WithGroup(name string) slog.Handler {
	return &redactionHandler{handler: h.handler.WithGroup(name), config: h.config}
}

// redactAttribute returns an empty Attr when the attribute must be omitted
func (h *redactionHandler) redactAttribute(attr slog.Attr) slog.Attr {
	if !h.config.Enabled {
		return attr
	}
	for i := range h.config.Rules {
		rule := &h.config.Rules[i]
		if rule.compiledPattern == nil || !rule.compiledPattern.MatchString(attr.Key) {
			continue
		}
		value := rule.apply(attr.Value)
		if value.String() == omitMarker {
			return slog.Attr{}
		}
		return slog.Attr{Key: attr.Key, Value: value}
	}
	return attr
}

// SanitizeLogMessage removes newlines and other control characters from log messages
func SanitizeLogMessage(message string) string {
	message = strings.ReplaceAll(message, "\n", " ")
	message = strings.ReplaceAll(message, "\r", " ")
	message = strings.ReplaceAll(message, "\t", " ")
	return strings.TrimSpace(strings.Join(strings.Fields(message), " "))
}

// RedactQuery returns rawQuery with credential parameters partially redacted.
// WebSocket clients pass the room token as a query parameter, so request
// URLs must not be logged verbatim.
func RedactQuery(rawQuery string) string {
	if rawQuery == "" {
		return rawQuery
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "[UNPARSEABLE]"
	}
	for key, vals := range values {
		lower := strings.ToLower(key)
		if lower == "token" || lower == "access_token" || lower == "roomtoken" {
			for i := range vals {
				vals[i] = partialRedactValue(vals[i])
			}
			values[key] = vals
		}
	}
	return values.Encode()
}
