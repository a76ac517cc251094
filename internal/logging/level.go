package logging

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Iron-Ham/caplog/internal/errors"
)

// Level is a severity rank. A call at level L is emitted iff the active
// threshold is less than or equal to L.
type Level int

// The ranks follow the platform log priorities the capture tool understands.
const (
	// LevelUnresolved means the threshold was never configured; the build
	// mode default applies.
	LevelUnresolved Level = -1

	LevelTrace  Level = 2
	LevelDebug  Level = 3
	LevelInfo   Level = 4
	LevelWarn   Level = 5
	LevelError  Level = 6
	LevelAssert Level = 7

	// LevelDisabled ranks above every real level and suppresses everything.
	LevelDisabled Level = 100
)

// Levels returns every settable level in ascending rank.
func Levels() []Level {
	return []Level{LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError, LevelAssert, LevelDisabled}
}

// Valid reports whether l can be set as a threshold.
func (l Level) Valid() bool {
	switch l {
	case LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError, LevelAssert, LevelDisabled:
		return true
	}
	return false
}

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelAssert:
		return "ASSERT"
	case LevelDisabled:
		return "NONE"
	case LevelUnresolved:
		return "UNRESOLVED"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// slogLevel maps a severity onto the slog scale so the JSON sink keeps a
// sortable "level" field.
func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelTrace:
		return slog.LevelDebug - 4
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelError + 4
	}
}

// ParseLevel converts a level name (case-insensitive) to a Level.
// "none", "off" and "disabled" map to LevelDisabled; "wtf" and "fatal" map
// to LevelAssert.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace", "verbose":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "assert", "wtf", "fatal":
		return LevelAssert, nil
	case "none", "off", "disabled":
		return LevelDisabled, nil
	}
	return LevelUnresolved, fmt.Errorf("%w: %q", errors.ErrInvalidLevel, s)
}

// ValidLevelNames returns the canonical names accepted by ParseLevel.
func ValidLevelNames() []string {
	return []string{"trace", "debug", "info", "warn", "error", "assert", "none"}
}
