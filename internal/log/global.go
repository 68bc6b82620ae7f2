package log

import (
	"sync/atomic"
)

var defaultLogger atomic.Pointer[Logger]

// SetDefaultLogger sets the process-wide default logger. The CLI calls this
// once its --log-level and --log-format flags are parsed.
func SetDefaultLogger(logger *Logger) {
	defaultLogger.Store(logger)
}

// DefaultLogger returns the process-wide default logger, initializing it
// lazily with the standard configuration when nothing was set.
func DefaultLogger() *Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	l := Default()
	defaultLogger.CompareAndSwap(nil, l)
	return defaultLogger.Load()
}
