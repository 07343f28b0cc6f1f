package internal

import (
	"io"
	"log/slog"
	"strings"
)

// ParseLogLevel accepts slog's level names in any case, with optional
// offsets such as "info+2", and the alias "warning". Anything else is info.
func ParseLogLevel(s string) slog.Level {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewLogger writes text in development and JSON elsewhere. Every record
// carries the service name and environment; debug logging adds the source
// location.
func NewLogger(w io.Writer, env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLogLevel(level)}
	opts.AddSource = opts.Level.Level() <= slog.LevelDebug

	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if env == "development" {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("service", "civicpulse", "env", env)
}
