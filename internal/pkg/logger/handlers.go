// internal/pkg/logger/handlers.go
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

const redacted = "***REDACTED***"

// ContextHandler copies request scoped values from ctx onto every record
type ContextHandler struct {
	next slog.Handler
}

// NewContextHandler wraps next
func NewContextHandler(next slog.Handler) *ContextHandler {
	return &ContextHandler{next: next}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := extractContextAttrs(ctx); len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.next.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewContextHandler(h.next.WithAttrs(attrs))
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return NewContextHandler(h.next.WithGroup(name))
}

// attribute keys whose values are never logged
var sensitiveKeys = []string{
	"password", "passwd", "secret", "token", "authorization",
	"api_key", "apikey", "credential",
}

var (
	assignedSecret = regexp.MustCompile(`(?i)(password|passwd|secret|token|bearer|api[-_]?key)(\s*[:=]\s*["']?)([^"'\s&]+)`)
	querySecret    = regexp.MustCompile(`(?i)([?&](?:key|api[-_]?key|token)=)([^&\s]+)`)
	// photos travel inline in transaction payloads until they are offloaded
	inlinePhoto = regexp.MustCompile(`data:([\w.+-]+/[\w.+-]+);base64,[A-Za-z0-9+/=]+`)
)

// scrubbers rewrite free text. Order matters: photos go first so their
// base64 is never scanned for secrets.
var scrubbers = []func(string) string{
	func(s string) string {
		return inlinePhoto.ReplaceAllStringFunc(s, func(m string) string {
			mediaType := inlinePhoto.FindStringSubmatch(m)[1]
			comma := strings.IndexByte(m, ',')
			return fmt.Sprintf("data:%s;base64,<%d chars>", mediaType, len(m)-comma-1)
		})
	},
	func(s string) string { return assignedSecret.ReplaceAllString(s, "${1}${2}"+redacted) },
	func(s string) string { return querySecret.ReplaceAllString(s, "${1}"+redacted) },
}

// SanitizationHandler masks secrets and elides inline photos
type SanitizationHandler struct {
	next slog.Handler
}

// NewSanitizationHandler wraps next
func NewSanitizationHandler(next slog.Handler) *SanitizationHandler {
	return &SanitizationHandler{next: next}
}

func (h *SanitizationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *SanitizationHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, scrub(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(sanitizeAttr(a))
		return true
	})
	return h.next.Handle(ctx, clean)
}

func (h *SanitizationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = sanitizeAttr(a)
	}
	return NewSanitizationHandler(h.next.WithAttrs(clean))
}

func (h *SanitizationHandler) WithGroup(name string) slog.Handler {
	return NewSanitizationHandler(h.next.WithGroup(name))
}

func sanitizeAttr(a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return slog.String(a.Key, redacted)
		}
	}

	switch a.Value.Kind() {
	case slog.KindString:
		a.Value = slog.StringValue(scrub(a.Value.String()))
	case slog.KindGroup:
		group := a.Value.Group()
		out := make([]slog.Attr, len(group))
		for i, g := range group {
			out[i] = sanitizeAttr(g)
		}
		a.Value = slog.GroupValue(out...)
	}
	return a
}

func scrub(s string) string {
	for _, f := range scrubbers {
		s = f(s)
	}
	return s
}
