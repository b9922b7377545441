// Package logger builds the process-wide zerolog logger from configuration.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/seenimoa/earningsai/internal/config"
)

// New returns a logger writing to w. Format "json" emits one JSON object per
// line, anything else a human-readable console format. level overrides
// cfg.Level when non-empty; unknown levels fall back to info.
func New(w io.Writer, cfg config.LoggingConfig, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	if level == "" {
		level = cfg.Level
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if cfg.Format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: !isTerminal(w)}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "earningsai").Logger()
}

// Setup builds a stderr logger.
func Setup(cfg config.LoggingConfig, level string) zerolog.Logger {
	return New(os.Stderr, cfg, level)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
