package logging

import (
	"context"
	"log/slog"
)

// sessionHandler stamps every record with the viewer session identifier so
// lines from concurrent pixelterm processes sharing a log file can be told apart.
type sessionHandler struct {
	base      slog.Handler
	sessionID string
}

func newSessionHandler(base slog.Handler, sessionID string) slog.Handler {
	if base == nil {
		return discard{}
	}
	return &sessionHandler{base: base, sessionID: sessionID}
}

func (h *sessionHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *sessionHandler) Handle(ctx context.Context, record slog.Record) error {
	record.AddAttrs(slog.String(FieldSessionID, h.sessionID))
	return h.base.Handle(ctx, record)
}

func (h *sessionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &sessionHandler{base: h.base.WithAttrs(attrs), sessionID: h.sessionID}
}

func (h *sessionHandler) WithGroup(name string) slog.Handler {
	return &sessionHandler{base: h.base.WithGroup(name), sessionID: h.sessionID}
}
