package logger

import (
	"context"
	"log/slog"
)

// liveHandler resolves the current base handler on every record, so loggers
// created before a reconfiguration pick up the new output and format.
type liveHandler struct {
	ops []handlerOp
}

// handlerOp is one WithAttrs or WithGroup step, replayed in order.
type handlerOp struct {
	group string
	attrs []slog.Attr
}

func (h *liveHandler) resolve() slog.Handler {
	next := currentHandler()
	for _, op := range h.ops {
		if op.group != "" {
			next = next.WithGroup(op.group)
		} else {
			next = next.WithAttrs(op.attrs)
		}
	}
	return next
}

func (h *liveHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return currentHandler().Enabled(ctx, level)
}

func (h *liveHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.resolve().Handle(ctx, r)
}

func (h *liveHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return h.with(handlerOp{attrs: attrs})
}

func (h *liveHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.with(handlerOp{group: name})
}

func (h *liveHandler) with(op handlerOp) *liveHandler {
	ops := make([]handlerOp, 0, len(h.ops)+1)
	ops = append(ops, h.ops...)
	return &liveHandler{ops: append(ops, op)}
}
