/*
Package logx wraps zerolog for the chat client.

Logs go to stderr so stdout stays reserved for the conversation. Development
builds write colored console lines at Debug level, everything else writes JSON
lines at Info level. Package helpers take alternating key-value fields.
*/
package logx

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitGlobalLogger installs the global logger on stderr.
func InitGlobalLogger(isDevelopment bool) {
	InitGlobalLoggerTo(os.Stderr, isDevelopment)
}

// InitGlobalLoggerTo is InitGlobalLogger with an explicit destination.
func InitGlobalLoggerTo(out io.Writer, isDevelopment bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if isDevelopment {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		level = zerolog.DebugLevel
	}

	log.Logger = zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()
}

// Logger returns the global logger.
func Logger() *zerolog.Logger {
	return &log.Logger
}

// Component returns a child logger tagged with the given component name.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}

// emit attaches fields to ev and sends it. Callers sit one frame above.
// An odd field count would make zerolog panic, so such fields are dropped with a warning.
func emit(ev *zerolog.Event, msg string, fields []any) {
	if len(fields)%2 != 0 {
		Logger().Warn().
			Int("fields_count", len(fields)).
			Msgf("logx: odd number of fields for %q, fields ignored", msg)
		fields = nil
	}

	ev.Fields(fields).CallerSkipFrame(2).Msg(msg)
}

// Info logs msg at Info level.
func Info(msg string, fields ...any) {
	emit(Logger().Info(), msg, fields)
}

// Warn logs msg at Warn level.
func Warn(msg string, fields ...any) {
	emit(Logger().Warn(), msg, fields)
}

// Error logs msg and err at Error level.
func Error(err error, msg string, fields ...any) {
	emit(Logger().Error().Err(err), msg, fields)
}
