package logger

import (
	"sync"

	"go.uber.org/zap"
)

// Log levels accepted by the --log-level flag and the log.level config key.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	root *Logger
	once sync.Once
)

// Get returns the process-wide logger. Only the first call's level is applied.
func Get(level string) *Logger {
	once.Do(func() {
		root = newZapLogger(level)
	})
	return root
}

// Nop returns a logger that discards everything. Used by tests and by
// components constructed without a logger.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// Named returns a child logger tagged with the component name.
func (l *Logger) Named(component string) *Logger {
	if l == nil {
		return Nop()
	}
	return &Logger{SugaredLogger: l.SugaredLogger.Named(component)}
}

// OrNop lets components keep a nil-safe logger field.
func OrNop(l *Logger) *Logger {
	if l == nil {
		return Nop()
	}
	return l
}
