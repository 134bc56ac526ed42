// Package logging configures the process-wide slog logger.
//
// Logs go to stderr, as text on a terminal and JSON otherwise. When a file
// path is configured they are also written, as JSON, to a size-rotated file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// FilePath is the path to the log file. Empty means no file logging.
	FilePath string
	// MaxSizeMB is the maximum size in MB before rotation.
	MaxSizeMB int
	// MaxFiles is the maximum number of rotated files to keep.
	MaxFiles int
	// Stderr is where console logs go; nil means os.Stderr.
	Stderr io.Writer
}

// Setup builds a logger and returns a cleanup function that closes the log file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	stderr := cfg.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	var console slog.Handler
	if isTerminal(stderr) {
		console = slog.NewTextHandler(stderr, opts)
	} else {
		console = slog.NewJSONHandler(stderr, opts)
	}

	if cfg.FilePath == "" {
		return slog.New(console), func() {}, nil
	}

	writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, nil, err
	}
	file := slog.NewJSONHandler(writer, opts)

	cleanup := func() {
		_ = writer.Sync()
		_ = writer.Close()
	}
	return slog.New(fanout{console, file}), cleanup, nil
}

// Discard returns a logger that drops everything. Used by tests and library callers.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// parseLevel converts string level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
