package logging

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/fatih/color"
)

// Logger is the core logging type. A nil *Logger is valid and silently
// discards everything written to it, so components can be handed a logger
// that might be nil without special-casing every call site (mirrors the
// nil-safety of mutagen's pkg/logging.Logger).
type Logger struct {
	// level is the minimum severity that will be emitted.
	level Level
	// prefix is the dotted sublogger name, if any.
	prefix string
	// output is the destination for rendered lines.
	output *log.Logger
}

// NewLogger creates a root logger at the given level, writing to output.
func NewLogger(level Level, output io.Writer) *Logger {
	return &Logger{
		level:  level,
		output: log.New(output, "", log.LstdFlags),
	}
}

// RootLogger is the default logger used when no logger is explicitly wired
// in, writing at LevelInfo to standard error.
var RootLogger = NewLogger(LevelInfo, os.Stderr)

// Sublogger creates a new logger with the given name appended to the prefix
// chain. A nil receiver yields a nil sublogger.
func (l *Logger) Sublogger(name string) *Logger {
	if l == nil {
		return nil
	}
	prefix := name
	if l.prefix != "" {
		prefix = l.prefix + "." + name
	}
	return &Logger{level: l.level, prefix: prefix, output: l.output}
}

func (l *Logger) line(format string, v ...interface{}) string {
	message := fmt.Sprintf(format, v...)
	if l.prefix != "" {
		return fmt.Sprintf("[%s] %s", l.prefix, message)
	}
	return message
}

// Debugf logs at LevelDebug.
func (l *Logger) Debugf(format string, v ...interface{}) {
	if l == nil || l.level < LevelDebug {
		return
	}
	l.output.Print(l.line(format, v...))
}

// Infof logs at LevelInfo.
func (l *Logger) Infof(format string, v ...interface{}) {
	if l == nil || l.level < LevelInfo {
		return
	}
	l.output.Print(l.line(format, v...))
}

// Warnf logs at LevelWarn, rendered in yellow.
func (l *Logger) Warnf(format string, v ...interface{}) {
	if l == nil || l.level < LevelWarn {
		return
	}
	l.output.Print(color.YellowString("warning: ") + l.line(format, v...))
}

// Errorf logs at LevelError, rendered in red.
func (l *Logger) Errorf(format string, v ...interface{}) {
	if l == nil || l.level < LevelError {
		return
	}
	l.output.Print(color.RedString("error: ") + l.line(format, v...))
}
