// Package logger provides a thread-safe, levelled logger backed by the
// standard library's log package.
//
// Every long-lived component of the engine (supervisor, session manager,
// proxy manager, …) obtains a child logger via Component, which prefixes all
// output with the component name.  This keeps log lines attributable when
// dozens of browser instances are launching and tearing down concurrently.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Level represents a logging verbosity level.
type Level int

const (
	// LevelDebug emits all messages.
	LevelDebug Level = iota
	// LevelInfo emits INFO, WARN and ERROR messages.
	LevelInfo
	// LevelWarn emits WARN and ERROR messages.
	LevelWarn
	// LevelError emits only ERROR messages.
	LevelError
)

// Logger is a structured, levelled logger.
//
// Thread-safety: log.Logger (from the standard library) serialises writes to
// the underlying io.Writer with its own mutex.  The Logger wrapper adds a
// second mutex only for the level field so that SetLevel may be called
// concurrently with logging methods.  Child loggers created by Component
// share the parent's level, so a single SetLevel call adjusts the whole tree.
type Logger struct {
	debugLog *log.Logger
	infoLog  *log.Logger
	warnLog  *log.Logger
	errorLog *log.Logger

	component string

	mu    *sync.RWMutex
	level *Level
}

// New creates a Logger that writes to w at the given minimum level.  Pass nil
// to write to stderr.  log.Ldate|log.Ltime|log.Lmicroseconds gives
// millisecond-resolution timestamps, which is sufficient for diagnosing
// launch-latency problems across concurrent browser instances.
func New(level Level, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	flags := log.Ldate | log.Ltime | log.Lmicroseconds
	lvl := level
	return &Logger{
		debugLog: log.New(w, "DEBUG ", flags),
		infoLog:  log.New(w, "INFO  ", flags),
		warnLog:  log.New(w, "WARN  ", flags),
		errorLog: log.New(w, "ERROR ", flags),
		mu:       &sync.RWMutex{},
		level:    &lvl,
	}
}

// Component returns a child logger whose messages are prefixed with
// "[name] ".  The child shares the parent's level and output writers, so
// SetLevel on either affects both.
func (l *Logger) Component(name string) *Logger {
	child := *l
	if l.component != "" {
		child.component = l.component + "." + name
	} else {
		child.component = name
	}
	return &child
}

// SetLevel changes the minimum log level at runtime.  Safe for concurrent use.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	*l.level = level
	l.mu.Unlock()
}

func (l *Logger) enabled(level Level) bool {
	l.mu.RLock()
	lvl := *l.level
	l.mu.RUnlock()
	return lvl <= level
}

func (l *Logger) output(dst *log.Logger, msg string) {
	if l.component != "" {
		msg = "[" + l.component + "] " + msg
	}
	dst.Output(3, msg) //nolint:errcheck
}

// Debug logs a message at DEBUG level.
func (l *Logger) Debug(msg string) {
	if l.enabled(LevelDebug) {
		l.output(l.debugLog, msg)
	}
}

// Debugf logs a formatted message at DEBUG level.
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.enabled(LevelDebug) {
		l.output(l.debugLog, fmt.Sprintf(format, args...))
	}
}

// Info logs a message at INFO level.
func (l *Logger) Info(msg string) {
	if l.enabled(LevelInfo) {
		l.output(l.infoLog, msg)
	}
}

// Infof logs a formatted message at INFO level.
func (l *Logger) Infof(format string, args ...interface{}) {
	if l.enabled(LevelInfo) {
		l.output(l.infoLog, fmt.Sprintf(format, args...))
	}
}

// Warn logs a message at WARN level.
func (l *Logger) Warn(msg string) {
	if l.enabled(LevelWarn) {
		l.output(l.warnLog, msg)
	}
}

// Warnf logs a formatted message at WARN level.
func (l *Logger) Warnf(format string, args ...interface{}) {
	if l.enabled(LevelWarn) {
		l.output(l.warnLog, fmt.Sprintf(format, args...))
	}
}

// Error logs a message at ERROR level.
func (l *Logger) Error(msg string) {
	if l.enabled(LevelError) {
		l.output(l.errorLog, msg)
	}
}

// Errorf logs a formatted message at ERROR level.
func (l *Logger) Errorf(format string, args ...interface{}) {
	if l.enabled(LevelError) {
		l.output(l.errorLog, fmt.Sprintf(format, args...))
	}
}
