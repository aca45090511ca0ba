package logger

import (
	"os"
	"sync/atomic"
)

var defLogger atomic.Pointer[Logger]

func init() {
	var l Logger = newSlog(os.Stdout, InfoLevel, false)
	defLogger.Store(&l)
}

// GetLogger returns the package default logger, used by engines built
// without an explicit logger.
func GetLogger() Logger {
	return *defLogger.Load()
}

// SetDefault replaces the package default logger. A nil l is ignored.
func SetDefault(l Logger) {
	if l != nil {
		defLogger.Store(&l)
	}
}

// SetLevel changes the level of the default logger.
func SetLevel(level Level) {
	GetLogger().SetLevel(level)
}

// With returns a child of the default logger.
func With(keyValues ...any) Logger {
	return GetLogger().With(keyValues...)
}

func Debug(msg string, keysAndValues ...any) { GetLogger().Debug(msg, keysAndValues...) }
func Info(msg string, keysAndValues ...any)  { GetLogger().Info(msg, keysAndValues...) }
func Warn(msg string, keysAndValues ...any)  { GetLogger().Warn(msg, keysAndValues...) }
func Error(msg string, keysAndValues ...any) { GetLogger().Error(msg, keysAndValues...) }
func Fatal(msg string, keysAndValues ...any) { GetLogger().Fatal(msg, keysAndValues...) }
