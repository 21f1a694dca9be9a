package logger

import (
	"log/slog"
	"os"
	"strings"
)

// L is the process-wide logger configured by Init. Components should derive
// their own namespaced logger from it rather than using slog.Default.
var L = slog.Default()

// Init configures the global logger from the log section of the config file.
// Format is "text" or "json"; level is one of debug/info/warn/error.
func Init(level, format string) {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	L = slog.New(handler)
	slog.SetDefault(L)
}
