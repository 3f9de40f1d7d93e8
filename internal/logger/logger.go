package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() {
	zerolog.TimestampFieldName = "ts"
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

// Init configures the global logger. format "console" switches to a human
// readable writer on stderr; anything else keeps JSON lines on stdout.
func Init(level string, format string) {
	zerolog.SetGlobalLevel(ParseLevel(level))

	var out io.Writer = os.Stdout
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Str("service", "fleetdocs").Logger()
	zerolog.DefaultContextLogger = &log.Logger
}

// Get returns the global logger.
func Get() zerolog.Logger {
	return log.Logger
}

// New returns a JSON logger writing to w, used where output must be captured.
func New(w io.Writer, loc *time.Location) zerolog.Logger {
	ctx := zerolog.New(w).With()
	if loc != nil {
		ctx = ctx.Str("tz", loc.String())
	}
	return ctx.Timestamp().Logger()
}

func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
