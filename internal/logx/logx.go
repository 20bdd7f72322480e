// Package logx builds the structured loggers handed to every component.
package logx

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	DefaultMaxMB   = 75
	DefaultBackups = 10
)

// Options configure New.
type Options struct {
	Level slog.Level
	// File, when set, receives a copy of every line and is rotated at
	// MaxMB megabytes keeping Backups old files.
	File    string
	MaxMB   int
	Backups int
	// Stderr defaults to os.Stderr.
	Stderr io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a text logger and the closer of its log file.
func New(o Options) (*slog.Logger, io.Closer) {
	var w io.Writer = o.Stderr
	if w == nil {
		w = os.Stderr
	}
	var closer io.Closer = nopCloser{}
	if o.File != "" {
		if o.MaxMB <= 0 {
			o.MaxMB = DefaultMaxMB
		}
		if o.Backups <= 0 {
			o.Backups = DefaultBackups
		}
		lj := &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.MaxMB,
			MaxBackups: o.Backups,
		}
		w = io.MultiWriter(w, lj)
		closer = lj
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: o.Level})
	return slog.New(h), closer
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(1000)}))
}

// ParseLevel accepts debug, info, warn/warning and error, in any case.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, errors.Errorf("unknown log level %q", s)
}
