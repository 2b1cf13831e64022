package logger

import (
	"context"
	"log/slog"

	"virtualrag/internal/middleware"
)

// ContextHandler wraps a slog.Handler and stamps every record with the
// request's correlation ID when one is present in the context, so log
// lines from a single upload or chat turn can be grepped together.
type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

// Handle adds correlation_id before delegating to the wrapped handler.

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ctx.Value(middleware.CorrelationKey).(string); ok && id != "" {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	return h.Handler.Handle(ctx, r)
}
