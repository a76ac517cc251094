package logging

import (
	"os"
	"sync/atomic"
)

var std atomic.Pointer[Logger]

func init() {
	std.Store(New(NewSlogSink(os.Stderr)))
}

// Default returns the process-wide Logger.
func Default() *Logger { return std.Load() }

// SetDefault replaces the process-wide Logger.
func SetDefault(l *Logger) {
	if l != nil {
		std.Store(l)
	}
}

// Trace logs at LevelTrace on the default Logger.
func Trace(tag, msg string, cause ...error) int {
	return Default().log(LevelTrace, tag, msg, firstCause(cause))
}

// Debug logs at LevelDebug on the default Logger.
func Debug(tag, msg string, cause ...error) int {
	return Default().log(LevelDebug, tag, msg, firstCause(cause))
}

// Info logs at LevelInfo on the default Logger.
func Info(tag, msg string, cause ...error) int {
	return Default().log(LevelInfo, tag, msg, firstCause(cause))
}

// Warn logs at LevelWarn on the default Logger.
func Warn(tag, msg string, cause ...error) int {
	return Default().log(LevelWarn, tag, msg, firstCause(cause))
}

// Error logs at LevelError on the default Logger.
func Error(tag, msg string, cause ...error) int {
	return Default().log(LevelError, tag, msg, firstCause(cause))
}

// Assert logs at LevelAssert on the default Logger.
func Assert(tag, msg string, cause ...error) int {
	return Default().log(LevelAssert, tag, msg, firstCause(cause))
}
