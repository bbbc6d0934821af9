// Package logger builds the zerolog loggers used by the commands.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ParseLevel maps a level name to a zerolog level. The empty string is
// info; "warning" is accepted as an alias of "warn".
func ParseLevel(level string) (zerolog.Level, error) {
	switch l := strings.ToLower(strings.TrimSpace(level)); l {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	default:
		return zerolog.ParseLevel(l)
	}
}

// New returns a timestamped logger writing to w. With console set, lines
// are human readable instead of JSON. Every line carries the component.
func New(w io.Writer, level zerolog.Level, console bool, component string) zerolog.Logger {
	if console {
		w = zerolog.ConsoleWriter{Out: w}
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

// Setup parses level, builds a stderr logger for component and installs it
// as the global zerolog logger, which the library packages log through.
func Setup(level string, console bool, component string) (zerolog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}

	l := New(os.Stderr, lvl, console, component)
	zerolog.SetGlobalLevel(lvl)
	log.Logger = l

	return l, nil
}
