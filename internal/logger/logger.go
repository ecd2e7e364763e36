// Package logger configures the global zerolog logger: a console writer on
// stderr plus an optional size-rotated JSON log file.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/tradelens/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup installs the global logger described by cfg. Console output goes to
// console (os.Stderr when nil). The returned closer releases the log file.
func Setup(cfg config.LogConfig, console io.Writer) (io.Closer, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level = l
	}

	if console == nil {
		console = os.Stderr
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(level)

	var out io.Writer = zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339}
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		// the file gets plain JSON lines, the console the pretty form
		out = zerolog.MultiLevelWriter(out, rotator)
		closer = rotator
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return closer, nil
}
