package logger

import (
	"log/slog"
	"os"
)

var Log *slog.Logger

// Setup initializes the global logger for the given environment:
// JSON output in production, human-readable text everywhere else.
func Setup(env string) {
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	Log = slog.New(handler)
	slog.SetDefault(Log)
}
