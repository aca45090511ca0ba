// Package logger is the structured logging facade of go-geocom.
//
// Protocol engines, sessions and transports log through the Logger
// interface. Three backends are provided: slog (JSON or console output),
// zap with lumberjack file rotation, and an in-memory Recorder for tests.
// Records carry alternating key/value pairs after the message.
package logger

// LogLevel is a logging severity.
type LogLevel = int8

// Level is an alias of LogLevel.
type Level = LogLevel

const (
	// DebugLevel traces every exchanged line.
	DebugLevel LogLevel = iota - 1
	// InfoLevel reports lifecycle events such as open and close.
	InfoLevel
	// WarnLevel reports recoverable problems: failed handshakes, undecodable fields.
	WarnLevel
	// ErrorLevel reports failed exchanges and lost synchronization.
	ErrorLevel
	// FatalLevel logs and then terminates the process.
	FatalLevel
)

// Logger is the logging interface used by every go-geocom package.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	// Fatal logs at FatalLevel and then calls os.Exit(1), except in the Recorder.
	Fatal(msg string, keysAndValues ...any)
	// With returns a child logger that adds keyValues to every record.
	// The parent is not affected.
	With(keyValues ...any) Logger
	// Level returns the minimum enabled level.
	Level() LogLevel
	// SetLevel changes the minimum enabled level.
	SetLevel(level LogLevel)
}
