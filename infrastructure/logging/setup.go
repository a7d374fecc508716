package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configure the global logger
type Options struct {
	Level      string
	Format     string // "json" or "text"
	File       string // Rotated log file; empty logs to stdout only
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Loki       LokiConfig
}

// Setup configures the global logrus logger and returns a function that flushes
// and closes the configured outputs
func Setup(opts Options) (func(), error) {
	level, err := log.ParseLevel(strings.TrimSpace(opts.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}
	log.SetLevel(level)
	log.SetFormatter(NewFormatter(opts.Format))

	var closers []func()

	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		log.SetOutput(io.MultiWriter(os.Stdout, rotator))
		closers = append(closers, func() { _ = rotator.Close() })
	} else {
		log.SetOutput(os.Stdout)
	}

	if opts.Loki.URL != "" {
		hook := NewLokiHook(opts.Loki)
		log.AddHook(hook)
		closers = append(closers, hook.Close)
	}

	log.WithFields(log.Fields{
		"level":  level.String(),
		"format": opts.Format,
		"file":   opts.File,
		"loki":   opts.Loki.URL != "",
	}).Info("Logging configured")

	return func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}

// NewFormatter returns the formatter for the given format name
func NewFormatter(format string) log.Formatter {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return &log.JSONFormatter{}
	}
	return &log.TextFormatter{FullTimestamp: true}
}
