package logging

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// sensitiveKeyPatterns lists substrings that indicate a log attribute key holds a secret value.
// Values logged under these keys will be fully redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"passphrase",
	"secret",
	"private_key",
	"privkey",
	"mnemonic",
}

// rawPrivateKeyPattern matches 64 hex chars with no 0x prefix, the format
// wallet export prints. Transaction hashes are 0x-prefixed and pass through.
var rawPrivateKeyPattern = regexp.MustCompile(`(^|[^0-9a-fA-Fx])([0-9a-fA-F]{64})($|[^0-9a-fA-F])`)

// RedactingHandler wraps an slog.Handler and redacts sensitive values before they
// are passed to the inner handler.
type RedactingHandler struct {
	inner slog.Handler
}

// NewRedactingHandler creates a RedactingHandler that wraps the given inner handler.
func NewRedactingHandler(inner slog.Handler) *RedactingHandler {
	if r, ok := inner.(*RedactingHandler); ok {
		return r
	}
	return &RedactingHandler{inner: inner}
}

// Enabled reports whether the inner handler handles records at the given level.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle redacts sensitive attribute values and forwards the record to the inner handler.
func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	var redacted []slog.Attr
	r.Attrs(func(a slog.Attr) bool {
		redacted = append(redacted, redactAttr(a))
		return true
	})

	newRecord := slog.NewRecord(r.Time, r.Level, redactString(r.Message), r.PC)
	newRecord.AddAttrs(redacted...)

	return h.inner.Handle(ctx, newRecord)
}

// WithAttrs returns a new handler with the given attributes redacted.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = redactAttr(a)
	}
	return &RedactingHandler{inner: h.inner.WithAttrs(redacted)}
}

// WithGroup returns a new handler with the given group name.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{inner: h.inner.WithGroup(name)}
}

func redactAttr(a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(key, pattern) {
			return slog.String(a.Key, "[REDACTED]")
		}
	}

	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		out := make([]any, len(group))
		for i, g := range group {
			out[i] = redactAttr(g)
		}
		return slog.Group(a.Key, out...)
	}

	if a.Value.Kind() == slog.KindString {
		val := a.Value.String()
		if redacted := redactString(val); redacted != val {
			return slog.String(a.Key, redacted)
		}
	}

	return a
}

func redactString(val string) string {
	return rawPrivateKeyPattern.ReplaceAllStringFunc(val, func(match string) string {
		sub := rawPrivateKeyPattern.FindStringSubmatch(match)
		return sub[1] + sub[2][:4] + "...[REDACTED]" + sub[3]
	})
}
