// Copyright 2024 The cdefmt-go Authors.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

// Package calog provides the decoder's diagnostic logging: a minimal
// Logger sink, a level filter, and a Helper with leveled printf-style
// methods. Parsers log through it for non-fatal per-site problems instead
// of writing to the process-global logger.
package calog

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// Level is a log record's severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is the minimal sink every component logs through.
type Logger interface {
	Log(level Level, msg string)
}

// stdLogger writes timestamped, leveled lines to an io.Writer via the
// standard library's log package.
type stdLogger struct {
	l *log.Logger
}

// NewStdLogger returns a Logger that writes to w.
func NewStdLogger(w io.Writer) Logger {
	return &stdLogger{l: log.New(w, "", 0)}
}

func (s *stdLogger) Log(level Level, msg string) {
	s.l.Printf("%s %-5s %s", time.Now().UTC().Format(time.RFC3339), level, msg)
}

// filter wraps a Logger and drops records below a minimum level.
type filter struct {
	next Logger
	min  Level
}

// FilterOption configures a filtering Logger built by NewFilter.
type FilterOption func(*filter)

// FilterLevel sets the minimum level a filtered Logger passes through.
func FilterLevel(min Level) FilterOption {
	return func(f *filter) { f.min = min }
}

// NewFilter returns a Logger that forwards to next, dropping any record
// below the configured minimum level (LevelInfo by default).
func NewFilter(next Logger, opts ...FilterOption) Logger {
	f := &filter{next: next, min: LevelInfo}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *filter) Log(level Level, msg string) {
	if level < f.min {
		return
	}
	f.next.Log(level, msg)
}

// Helper adds leveled printf-style methods over a Logger.
type Helper struct {
	logger Logger
}

// NewHelper wraps logger in a Helper.
func NewHelper(logger Logger) *Helper {
	return &Helper{logger: logger}
}

func (h *Helper) Debugf(format string, args ...any) { h.logger.Log(LevelDebug, fmt.Sprintf(format, args...)) }
func (h *Helper) Infof(format string, args ...any)  { h.logger.Log(LevelInfo, fmt.Sprintf(format, args...)) }
func (h *Helper) Warnf(format string, args ...any)  { h.logger.Log(LevelWarn, fmt.Sprintf(format, args...)) }
func (h *Helper) Errorf(format string, args ...any) { h.logger.Log(LevelError, fmt.Sprintf(format, args...)) }

// Default returns a Helper writing to stderr at LevelError and above.
func Default() *Helper {
	return NewHelper(NewFilter(NewStdLogger(os.Stderr), FilterLevel(LevelError)))
}
