// Package logger builds the slog handler used by the service and a chi
// middleware that logs one line per request.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

const (
	FormatJSON = "json"
	FormatText = "text"
)

// Options configures NewHandler. A nil *Options means JSON at info level to stdout.
type Options struct {
	Level  slog.Level
	Format string
	Output io.Writer
}

// NewHandler returns a handler that decorates every record with the trace and
// span ids found in the record's context.
func NewHandler(opts *Options) slog.Handler {
	if opts == nil {
		opts = &Options{Level: slog.LevelInfo, Format: FormatJSON}
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	hopts := &slog.HandlerOptions{Level: opts.Level}

	var base slog.Handler
	if opts.Format == FormatText {
		base = slog.NewTextHandler(out, hopts)
	} else {
		base = slog.NewJSONHandler(out, hopts)
	}

	return &contextHandler{Handler: base}
}

// ParseLevel maps a level name to slog.Level, falling back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type contextHandler struct {
	slog.Handler
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", sc.TraceID().String()))
	}
	if sc.HasSpanID() {
		r.AddAttrs(slog.String("span_id", sc.SpanID().String()))
	}

	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name)}
}
