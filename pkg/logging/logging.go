// Package logging adds level filtering on top of the standard library's
// log package — the teacher's own logging idiom throughout (plain
// log.Printf/log.Fatalf, no structured fields) — so the CLI's --log flag
// has somewhere to plug into without introducing a different logging
// style for the ambient ("ok, this run is happening") messages versus the
// domain ("N shortcuts created") ones.
package logging

import (
	"log"
	"strings"
)

// Level is an ascending verbosity filter.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel accepts "debug", "info", "warn"/"warning", "error" (case
// insensitive), defaulting to LevelInfo for anything else.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger wraps the standard logger with a minimum level.
type Logger struct {
	min Level
}

// New creates a Logger that suppresses messages below min.
func New(min Level) *Logger {
	return &Logger{min: min}
}

func (l *Logger) log(level Level, prefix, format string, args ...any) {
	if level < l.min {
		return
	}
	log.Printf(prefix+format, args...)
}

func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, "DEBUG ", format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LevelInfo, "INFO ", format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LevelWarn, "WARN ", format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, "ERROR ", format, args...) }

// Fatalf always logs regardless of level, then exits — the same contract
// as the standard library's log.Fatalf, for genuinely unrecoverable
// startup errors (bad config, missing required flags).
func (l *Logger) Fatalf(format string, args ...any) {
	log.Fatalf("FATAL "+format, args...)
}
