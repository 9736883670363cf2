package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New returns a zerolog.Logger tagged with the binary name. Development uses
// a console writer at debug level; elsewhere JSON at info. LOG_LEVEL
// (trace..panic) overrides the level in either mode.
func New(appEnv, service string) zerolog.Logger {
	return newWithWriter(appEnv, service, os.Getenv("LOG_LEVEL"), os.Stdout)
}

func newWithWriter(appEnv, service, level string, out io.Writer) zerolog.Logger {
	env := strings.ToLower(strings.TrimSpace(appEnv))
	dev := env == "development" || env == "dev"

	lvl := zerolog.InfoLevel
	if dev {
		lvl = zerolog.DebugLevel
	}
	if l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil && level != "" {
		lvl = l
	}

	w := out
	if dev {
		w = zerolog.NewConsoleWriter(func(cw *zerolog.ConsoleWriter) {
			cw.Out = out
			cw.TimeFormat = "2006-01-02 15:04:05"
		})
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", service).Logger()
}

// Nop returns a disabled logger, useful for tests.
func Nop() zerolog.Logger {
	return zerolog.New(io.Discard)
}
