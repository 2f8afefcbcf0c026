package observability

import (
	"io"
	"log/slog"
	"strings"
)

// NewLoggerTo builds a logger writing to w, for commands whose stdout
// carries data. Services use the shared stdout logger instead.
// format is "json" or "text"; an unknown level falls back to info.
func NewLoggerTo(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
