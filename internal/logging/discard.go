package logging

// DiscardLogger is a no-op logger that discards all log messages. Use it
// for tests or when logging is not desired.
type DiscardLogger struct{}

// Discard is the singleton discard logger.
var Discard Logger = &DiscardLogger{}

func (l *DiscardLogger) Errorf(format string, args ...any) {}
func (l *DiscardLogger) Warnf(format string, args ...any)  {}
func (l *DiscardLogger) Infof(format string, args ...any)  {}
func (l *DiscardLogger) Debugf(format string, args ...any) {}
func (l *DiscardLogger) Fatalf(format string, args ...any) {}
