// Package logger configures the global zerolog logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Formats accepted by Setup.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Setup sets the global level and output format. Text output goes to stderr
// through a console writer, JSON output is written as-is.
func Setup(level, format string) error {
	return SetupWriter(os.Stderr, level, format)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, level, format string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	switch strings.ToLower(format) {
	case "", FormatText:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	case FormatJSON:
	default:
		return fmt.Errorf("log format %q: want %s or %s", format, FormatText, FormatJSON)
	}

	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return nil
}
