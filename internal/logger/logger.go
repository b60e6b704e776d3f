package logger

import (
	"io"
	"log/slog"
	"os"
)

// Options select the level, the output format and the writer of a logger.
type Options struct {
	Level  string
	Format string // "text" or "json"
	// Debug forces the debug level regardless of Level.
	Debug  bool
	Writer io.Writer
}

// New returns a structured logger built from opts. Logs go to stderr by
// default so they never mix with command output.
func New(opts Options) *slog.Logger {
	level := parseLevel(opts.Level)
	if opts.Debug {
		level = slog.LevelDebug
	}
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	hopts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if opts.Format == "json" {
		handler = slog.NewJSONHandler(w, hopts)
	} else {
		handler = slog.NewTextHandler(w, hopts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
