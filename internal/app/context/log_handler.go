package context

import (
	"context"
	"log/slog"
	"sort"
)

// LogHandler is an slog.Handler that appends the effective history context
// of the record's context to every record, under a "history" group.
type LogHandler struct {
	next slog.Handler
}

// NewLogHandler wraps next.
func NewLogHandler(next slog.Handler) *LogHandler {
	return &LogHandler{next: next}
}

// Enabled delegates to the wrapped handler.
func (h *LogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle adds history attributes when ctx carries a stack.
func (h *LogHandler) Handle(ctx context.Context, r slog.Record) error { //nolint:gocritic // slog.Handler interface requires value
	stack := StackFromContext(ctx)
	if stack == nil {
		return h.next.Handle(ctx, r)
	}

	eff := stack.Effective()
	keys := make([]string, 0, len(eff))
	for k := range eff {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]any, 0, len(keys)+1)
	attrs = append(attrs, slog.String("context_id", stack.ID().String()))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, eff[k]))
	}

	r = r.Clone()
	r.AddAttrs(slog.Group("history", attrs...))
	return h.next.Handle(ctx, r)
}

// WithAttrs returns a LogHandler wrapping next.WithAttrs.
func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewLogHandler(h.next.WithAttrs(attrs))
}

// WithGroup returns a LogHandler wrapping next.WithGroup.
func (h *LogHandler) WithGroup(name string) slog.Handler {
	return NewLogHandler(h.next.WithGroup(name))
}
