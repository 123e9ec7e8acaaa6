// Package logging provides structured logging with the request principal.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	auth "github.com/dhaaraai/go-auth"
)

// principalHandler wraps a slog.Handler to add the request principal.
type principalHandler struct {
	handler slog.Handler
	service string
	version string
}

// Handle adds service, version and principal attributes to the record.
func (h *principalHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(
		slog.String("service", h.service),
		slog.String("version", h.version),
	)

	if p, ok := auth.PrincipalFromContext(ctx); ok {
		r.AddAttrs(
			slog.String("subject", p.SubjectID()),
			slog.String("role", string(p.Role())),
		)
	}

	return h.handler.Handle(ctx, r)
}

func (h *principalHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *principalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &principalHandler{
		handler: h.handler.WithAttrs(attrs),
		service: h.service,
		version: h.version,
	}
}

func (h *principalHandler) WithGroup(name string) slog.Handler {
	return &principalHandler{
		handler: h.handler.WithGroup(name),
		service: h.service,
		version: h.version,
	}
}

// Setup creates a configured slog.Logger.
// format: "json" or "text" (defaults to "json" if empty)
// If w is nil, writes to os.Stderr.
func Setup(service, version, format, level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	var baseHandler slog.Handler
	if format == "text" {
		baseHandler = slog.NewTextHandler(w, opts)
	} else {
		baseHandler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(&principalHandler{
		handler: baseHandler,
		service: service,
		version: version,
	})
}

// SetDefault sets up and configures the default logger.
func SetDefault(service, version, format, level string) *slog.Logger {
	logger := Setup(service, version, format, level, nil)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
