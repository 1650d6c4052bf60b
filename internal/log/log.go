// Package log builds the command's slog logger.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%q: invalid log level", level)
	}
}

// New returns a text logger on stdout, or a JSON logger writing to a
// rotated file when path is set. The returned closer releases the file.
func New(level, path string) (*slog.Logger, io.Closer, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if path == "" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts)), nopCloser{}, nil
	}

	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    32, // MB
		MaxBackups: 3,
	}
	if lvl == slog.LevelDebug {
		w.MaxSize = 512
	}
	l := slog.New(slog.NewJSONHandler(w, opts))
	l.Info("System information",
		slog.String("GOARCH", runtime.GOARCH),
		slog.String("GOOS", runtime.GOOS),
		slog.Int("NumCPUs", runtime.NumCPU()))
	return l, w, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
