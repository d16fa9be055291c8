package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// NewLogger builds the process logger on stderr, leaving stdout to command
// output. Unknown levels fall back to info.
func NewLogger(level string, format string) zerolog.Logger {
	return NewLoggerTo(os.Stderr, level, format)
}

func NewLoggerTo(w io.Writer, level string, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339
	if format == FormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}
