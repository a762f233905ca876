package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger. Console output is used unless json is set.
func Setup(level string, json bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var out io.Writer = os.Stderr
	if !json {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return log.Logger
}
