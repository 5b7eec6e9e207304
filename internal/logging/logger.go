// Package logging provides the logging interface and default
// implementations used throughout Hummock.
//
// Design: five-level interface (Error, Warn, Info, Debug, Fatal). Callers
// may wrap their own structured loggers (slog, zap) if needed.
//
// Fatalf behavior: logs at FATAL level and calls the configured
// FatalHandler. The default FatalHandler is a no-op; SetFatalHandler
// replaces it. Fatalf does not call os.Exit.
//
// Log format: YYYY/MM/DD HH:MM:SS LEVEL [component] message
package logging

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"reflect"
	"sync/atomic"
)

// ErrFatal is the sentinel error wrapped by fatal conditions. Use
// errors.Is(err, ErrFatal) to detect fatal errors in returned errors.
var ErrFatal = errors.New("fatal error")

// FatalHandler is called when Fatalf is invoked. The handler receives the
// formatted fatal message and should transition the caller to a stopped
// state.
//
// Contract: FatalHandler must be safe for concurrent use and must not
// call Fatalf (avoid infinite recursion).
type FatalHandler func(msg string)

// Level represents the logging level.
type Level int

const (
	// LevelError logs only errors.
	LevelError Level = iota
	// LevelWarn logs warnings and errors.
	LevelWarn
	// LevelInfo logs info, warnings, and errors.
	LevelInfo
	// LevelDebug logs everything including debug messages.
	LevelDebug
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// Logger defines the interface used for Hummock's internal logging.
//
// Concurrency: DefaultLogger and Discard are safe for concurrent use.
// User-provided implementations must also be safe for concurrent use,
// since logging may occur from the write path, reads, and the
// compactor's background goroutine simultaneously.
type Logger interface {
	// Errorf logs a formatted error message.
	Errorf(format string, args ...any)

	// Warnf logs a formatted warning message.
	Warnf(format string, args ...any)

	// Infof logs a formatted informational message.
	Infof(format string, args ...any)

	// Debugf logs a formatted debug message.
	Debugf(format string, args ...any)

	// Fatalf logs a fatal error and triggers the fatal handler.
	Fatalf(format string, args ...any)
}

// DefaultLogger writes to a configured output at a configured level. It
// is stateless beyond its FatalHandler pointer and safe for concurrent
// use (log.Logger is thread-safe).
type DefaultLogger struct {
	logger       *log.Logger
	level        Level
	fatalHandler atomic.Pointer[FatalHandler]
}

// NewDefaultLogger creates a logger at level that writes to stderr.
func NewDefaultLogger(level Level) *DefaultLogger {
	return &DefaultLogger{
		logger: log.New(os.Stderr, "", log.LstdFlags),
		level:  level,
	}
}

// NewLogger creates a logger at level that writes to w.
func NewLogger(w io.Writer, level Level) *DefaultLogger {
	return &DefaultLogger{
		logger: log.New(w, "", log.LstdFlags),
		level:  level,
	}
}

// SetFatalHandler sets the handler called when Fatalf is invoked.
func (l *DefaultLogger) SetFatalHandler(h FatalHandler) {
	l.fatalHandler.Store(&h)
}

// Level returns the logger's configured level.
func (l *DefaultLogger) Level() Level {
	return l.level
}

func (l *DefaultLogger) Errorf(format string, args ...any) {
	if l.level >= LevelError {
		_ = l.logger.Output(2, "ERROR "+fmt.Sprintf(format, args...))
	}
}

func (l *DefaultLogger) Warnf(format string, args ...any) {
	if l.level >= LevelWarn {
		_ = l.logger.Output(2, "WARN "+fmt.Sprintf(format, args...))
	}
}

func (l *DefaultLogger) Infof(format string, args ...any) {
	if l.level >= LevelInfo {
		_ = l.logger.Output(2, "INFO "+fmt.Sprintf(format, args...))
	}
}

func (l *DefaultLogger) Debugf(format string, args ...any) {
	if l.level >= LevelDebug {
		_ = l.logger.Output(2, "DEBUG "+fmt.Sprintf(format, args...))
	}
}

// Fatalf always logs (no level filtering) and then calls the fatal
// handler, if one is set.
func (l *DefaultLogger) Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	_ = l.logger.Output(2, "FATAL "+msg)
	if h := l.fatalHandler.Load(); h != nil {
		(*h)(msg)
	}
}

// Namespace prefixes for log messages, one per Hummock component.
const (
	// NSWrite is the namespace for the write path.
	NSWrite = "[write] "
	// NSCompact is the namespace for compaction.
	NSCompact = "[compact] "
	// NSVersion is the namespace for the version manager.
	NSVersion = "[version] "
	// NSRead is the namespace for point/range reads.
	NSRead = "[read] "
	// NSObjStore is the namespace for object store operations.
	NSObjStore = "[objstore] "
)

// IsNil returns true if l is nil or a typed-nil interface value — a
// typed-nil occurs when a nil pointer is assigned to an interface, and
// calling methods on it panics.
func IsNil(l Logger) bool {
	if l == nil {
		return true
	}
	v := reflect.ValueOf(l)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// OrDefault returns l if it is valid, otherwise a default WARN-level
// logger. Ensures a caller's logger field is never nil after
// construction.
func OrDefault(l Logger) Logger {
	if IsNil(l) {
		return NewDefaultLogger(LevelWarn)
	}
	return l
}
