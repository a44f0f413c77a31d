package logging

import (
	"log/slog"
	"os"
	"strings"
)

const appName = "course-assistant"

// NewJSONLogger builds the process-wide logger for one binary. Both binaries
// log JSON to stderr, keyed by app and service, so api and worker streams
// stay distinguishable when aggregated.
func NewJSONLogger(service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler).With("app", appName, "service", service)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "err", "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
