package logging

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"unicode/utf8"

	"github.com/Iron-Ham/caplog/internal/errors"
)

// MaxChunkLength is the longest message, in characters, written to the
// sink in one record. Longer messages are split.
const MaxChunkLength = 2048

// DefaultTag is the tag used when a call omits one.
const DefaultTag = "Log"

// AssertHook is invoked on an assert-level call with the formatted message
// and the cause.
type AssertHook func(msg string, cause error)

// AssertionError is the panic value raised by an assert-level call in debug
// mode when no debug hook is registered.
type AssertionError struct {
	Msg   string
	Cause error
}

func (e *AssertionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("assertion failed: %s: %v", e.Msg, e.Cause)
	}
	return "assertion failed: " + e.Msg
}

func (e *AssertionError) Unwrap() error { return e.Cause }

// Logger gates, formats and chunks log calls before handing them to a Sink.
// Its threshold, default tag and hooks may be replaced at any time from any
// goroutine; each is swapped atomically as a whole value.
type Logger struct {
	sink     Sink
	mode     Mode
	maxChunk int

	threshold   atomic.Int64
	defaultTag  atomic.Pointer[string]
	onAssert    atomic.Pointer[AssertHook]
	onAssertDbg atomic.Pointer[AssertHook]

	// tid identifies the calling goroutine in prefixes; replaceable in tests.
	tid func() int64
}

// Option configures a Logger.
type Option func(*Logger)

// WithMode overrides the build mode for this Logger.
func WithMode(m Mode) Option {
	return func(l *Logger) { l.mode = m }
}

// WithLevel sets the initial threshold.
func WithLevel(level Level) Option {
	return func(l *Logger) {
		if level.Valid() {
			l.threshold.Store(int64(level))
		}
	}
}

// WithDefaultTag sets the initial default tag.
func WithDefaultTag(tag string) Option {
	return func(l *Logger) { l.defaultTag.Store(&tag) }
}

// WithMaxChunk overrides MaxChunkLength.
func WithMaxChunk(n int) Option {
	return func(l *Logger) {
		if n > 0 {
			l.maxChunk = n
		}
	}
}

// New creates a Logger writing to sink. A nil sink discards everything.
func New(sink Sink, opts ...Option) *Logger {
	if sink == nil {
		sink = nopSink{}
	}
	l := &Logger{
		sink:     sink,
		mode:     BuildMode(),
		maxChunk: MaxChunkLength,
		tid:      goroutineID,
	}
	l.threshold.Store(int64(LevelUnresolved))
	tag := DefaultTag
	l.defaultTag.Store(&tag)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Nop returns a Logger that discards all output. Useful in tests.
func Nop() *Logger {
	return New(nopSink{}, WithLevel(LevelDisabled))
}

// Mode returns the assert mode of the logger.
func (l *Logger) Mode() Mode { return l.mode }

// Level returns the active threshold, or the mode default when none has
// been set.
func (l *Logger) Level() Level {
	lvl := Level(l.threshold.Load())
	if lvl == LevelUnresolved {
		return l.mode.defaultLevel()
	}
	return lvl
}

// SetLevel replaces the threshold. An out-of-range level returns an error
// wrapping errors.ErrInvalidLevel and leaves the threshold unchanged.
// LevelUnresolved is accepted and changes nothing.
func (l *Logger) SetLevel(level Level) error {
	if level == LevelUnresolved {
		return nil
	}
	if !level.Valid() {
		return fmt.Errorf("%w: %d", errors.ErrInvalidLevel, int(level))
	}
	l.threshold.Store(int64(level))
	return nil
}

// IsLoggable reports whether a call at level would be emitted.
func (l *Logger) IsLoggable(level Level) bool {
	return l.gate(level)
}

// IsDebuggable reports whether any level is enabled.
func (l *Logger) IsDebuggable() bool {
	return l.Level() != LevelDisabled
}

// DefaultTag returns the tag used when a call omits one.
func (l *Logger) DefaultTag() string {
	return *l.defaultTag.Load()
}

// SetDefaultTag replaces the default tag.
func (l *Logger) SetDefaultTag(tag string) {
	l.defaultTag.Store(&tag)
}

// SetAssertHook sets the release-mode hook for assert-level calls. nil clears it.
func (l *Logger) SetAssertHook(h AssertHook) {
	if h == nil {
		l.onAssert.Store(nil)
		return
	}
	l.onAssert.Store(&h)
}

// SetDebugAssertHook sets the debug-mode hook for assert-level calls. When
// set, it replaces the panic. nil clears it.
func (l *Logger) SetDebugAssertHook(h AssertHook) {
	if h == nil {
		l.onAssertDbg.Store(nil)
		return
	}
	l.onAssertDbg.Store(&h)
}

// Trace logs at LevelTrace. An empty tag selects the default tag and
// prefixes msg with the goroutine id and call site. Only the first cause is
// used; pass errors.Join for several.
func (l *Logger) Trace(tag, msg string, cause ...error) int {
	return l.log(LevelTrace, tag, msg, firstCause(cause))
}

// Debug logs at LevelDebug. See Trace for the argument rules.
func (l *Logger) Debug(tag, msg string, cause ...error) int {
	return l.log(LevelDebug, tag, msg, firstCause(cause))
}

// Info logs at LevelInfo. See Trace for the argument rules.
func (l *Logger) Info(tag, msg string, cause ...error) int {
	return l.log(LevelInfo, tag, msg, firstCause(cause))
}

// Warn logs at LevelWarn. See Trace for the argument rules.
func (l *Logger) Warn(tag, msg string, cause ...error) int {
	return l.log(LevelWarn, tag, msg, firstCause(cause))
}

// Error logs at LevelError. See Trace for the argument rules.
func (l *Logger) Error(tag, msg string, cause ...error) int {
	return l.log(LevelError, tag, msg, firstCause(cause))
}

// Assert logs a condition that should never happen. In debug mode it panics
// with *AssertionError unless a debug hook is set; in release mode it calls
// the release hook, if any, and always writes the record.
func (l *Logger) Assert(tag, msg string, cause ...error) int {
	return l.log(LevelAssert, tag, msg, firstCause(cause))
}

// Tracef is Trace with a default tag and a formatted message.
func (l *Logger) Tracef(format string, args ...any) int {
	if !l.IsLoggable(LevelTrace) {
		return 0
	}
	return l.log(LevelTrace, "", fmt.Sprintf(format, args...), nil)
}

// Debugf is Debug with a default tag and a formatted message.
func (l *Logger) Debugf(format string, args ...any) int {
	if !l.IsLoggable(LevelDebug) {
		return 0
	}
	return l.log(LevelDebug, "", fmt.Sprintf(format, args...), nil)
}

// Log logs at an arbitrary level.
func (l *Logger) Log(level Level, tag, msg string, cause error) int {
	return l.log(level, tag, msg, cause)
}

// LogAt logs with an explicit call site, for wrappers that already captured
// their own caller with Caller.
func (l *Logger) LogAt(loc Location, level Level, tag, msg string, cause error) int {
	return l.emit(level, tag, msg, cause, loc)
}

// log must only be called directly by exported entry points so that the
// captured call site is the caller of that entry point.
func (l *Logger) log(level Level, tag, msg string, cause error) int {
	if tag != "" || msg == "" && cause == nil || !l.gate(level) {
		return l.emit(level, tag, msg, cause, Location{})
	}
	// 0 = locationAt, 1 = log, 2 = entry point, 3 = its caller
	return l.emit(level, tag, msg, cause, locationAt(3))
}

// gate reports whether a call at level passes the threshold. NONE is not a
// level calls can be made at.
func (l *Logger) gate(level Level) bool {
	return level.Valid() && level != LevelDisabled && l.Level() <= level
}

func (l *Logger) emit(level Level, tag, msg string, cause error, loc Location) int {
	if msg == "" && cause == nil {
		return 0
	}
	if !l.gate(level) {
		return 0
	}

	if tag == "" {
		tag = l.DefaultTag()
		msg = contextPrefix(l.tid(), loc) + msg
	}

	if level == LevelAssert {
		l.assert(msg, cause)
	}
	return l.write(level, tag, msg, cause)
}

func (l *Logger) assert(msg string, cause error) {
	if l.mode == ModeDebug {
		if h := l.onAssertDbg.Load(); h != nil {
			(*h)(msg, cause)
			return
		}
		panic(&AssertionError{Msg: msg, Cause: cause})
	}
	if h := l.onAssert.Load(); h != nil {
		(*h)(msg, cause)
	}
}

// write hands msg to the sink, splitting it into maxChunk-character pieces
// prefixed with "<index><tid>" when it is too long. A cause accompanying a
// chunked message is written last as its own record.
func (l *Logger) write(level Level, tag, msg string, cause error) int {
	if utf8.RuneCountInString(msg) <= l.maxChunk {
		return l.sink.Write(level, tag, msg, cause)
	}

	tidPrefix := "<" + strconv.FormatInt(l.tid(), 10) + ">"
	written := 0
	for i, chunk := range splitRunes(msg, l.maxChunk) {
		written += l.sink.Write(level, tag, strconv.Itoa(i)+tidPrefix+chunk, nil)
	}
	if cause != nil {
		written += l.sink.Write(level, tag, "", cause)
	}
	return written
}

// splitRunes splits s into consecutive pieces of at most n runes.
func splitRunes(s string, n int) []string {
	chunks := make([]string, 0, utf8.RuneCountInString(s)/n+1)
	for len(s) > 0 {
		end, count := 0, 0
		for end < len(s) && count < n {
			_, size := utf8.DecodeRuneInString(s[end:])
			end += size
			count++
		}
		chunks = append(chunks, s[:end])
		s = s[end:]
	}
	return chunks
}

func firstCause(causes []error) error {
	if len(causes) == 0 {
		return nil
	}
	return causes[0]
}
