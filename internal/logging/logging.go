// Package logging builds the process zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a timestamped logger at level. pretty selects the console
// writer for local development; otherwise output is JSON lines.
func New(level string, pretty bool) (zerolog.Logger, error) {
	return NewWithWriter(os.Stdout, level, pretty)
}

func NewWithWriter(w io.Writer, level string, pretty bool) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if s := strings.TrimSpace(level); s != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(s))
		if err != nil {
			return zerolog.Nop(), err
		}
		lvl = parsed
	}

	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}
