package logging

import (
	"context"
	"log/slog"
)

// teeHandler sends each record to a primary handler and a mirror.
// With the file output style the mirror writes to the routed log file, on
// the commands channel, so the file interleaves embedmongo's own phase
// timeline with the server's output. Only primary errors are returned.
type teeHandler struct {
	primary slog.Handler
	mirror  slog.Handler
}

func newTeeHandler(primary, mirror slog.Handler) slog.Handler {
	return &teeHandler{primary: primary, mirror: mirror}
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.primary.Enabled(ctx, level) || h.mirror.Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.mirror.Enabled(ctx, r.Level) {
		_ = h.mirror.Handle(ctx, r.Clone())
	}
	if !h.primary.Enabled(ctx, r.Level) {
		return nil
	}
	return h.primary.Handle(ctx, r)
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return newTeeHandler(h.primary.WithAttrs(attrs), h.mirror.WithAttrs(attrs))
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return newTeeHandler(h.primary.WithGroup(name), h.mirror.WithGroup(name))
}
