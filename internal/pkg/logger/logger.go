// Package logger adapts zerolog to the ports.Logger interface.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures New.
type Options struct {
	Level   string
	Format  string // "console" or "json"
	Verbose bool
	Writer  io.Writer
}

// ZeroLogger routes structured fields to a zerolog.Logger.
type ZeroLogger struct {
	log zerolog.Logger
}

// New builds a logger. Verbose forces debug level.
func New(opts Options) *ZeroLogger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	if !strings.EqualFold(opts.Format, "json") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	// concurrent invocations share one writer
	w = zerolog.SyncWriter(w)

	level := parseLevel(opts.Level)
	if opts.Verbose {
		level = zerolog.DebugLevel
	}

	return &ZeroLogger{
		log: zerolog.New(w).Level(level).With().Timestamp().Str("app", "ridepilot").Logger(),
	}
}

// Nop discards everything.
func Nop() *ZeroLogger {
	return &ZeroLogger{log: zerolog.Nop()}
}

// Zerolog exposes the underlying logger for components that take it directly.
func (l *ZeroLogger) Zerolog() zerolog.Logger {
	return l.log
}

func (l *ZeroLogger) Debug(msg string, fields map[string]interface{}) {
	l.log.Debug().Fields(fields).Msg(msg)
}

func (l *ZeroLogger) Info(msg string, fields map[string]interface{}) {
	l.log.Info().Fields(fields).Msg(msg)
}

func (l *ZeroLogger) Warn(msg string, fields map[string]interface{}) {
	l.log.Warn().Fields(fields).Msg(msg)
}

func (l *ZeroLogger) Error(msg string, err error, fields map[string]interface{}) {
	l.log.Error().Err(err).Fields(fields).Msg(msg)
}

func parseLevel(raw string) zerolog.Level {
	if raw == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
