// Package logger holds the process-wide diagnostic logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// L is the process-wide logger. It discards everything until Init enables it.
var L = discard()

// Format selects the output encoding.
type Format string

const (
	FormatPretty Format = "pretty" // charmbracelet/log, for terminals
	FormatText   Format = "text"
	FormatJSON   Format = "json"
)

// Options selects where and how much Init logs.
type Options struct {
	Enabled bool       // false keeps the discard logger
	Level   slog.Level // minimum level, LevelInfo when zero
	Format  Format     // Default: FormatPretty
	Output  io.Writer  // Default: os.Stderr
}

// Init replaces L according to opts. Programs call it once at startup, before
// the first allocator is created.
func Init(opts Options) {
	if !opts.Enabled {
		L = discard()
		return
	}

	w := opts.Output
	if w == nil {
		w = os.Stderr
	}
	level := opts.Level
	if level == 0 {
		level = slog.LevelInfo
	}

	switch opts.Format {
	case FormatJSON:
		L = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	case FormatText:
		L = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	default:
		h := charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmlog.Level(level),
			Prefix:          "hmalloc",
			ReportTimestamp: true,
		})
		L = slog.New(h)
	}
}

// ParseLevel maps a level name (debug, info, warn, error) to a slog.Level.
// ok is false for unknown names.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "1", "true":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return 0, false
}

// Debug logs at debug level through L.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs at info level through L.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs at warn level through L.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs at error level through L.
func Error(msg string, args ...any) { L.Error(msg, args...) }

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
