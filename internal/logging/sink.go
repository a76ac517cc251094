package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Iron-Ham/caplog/internal/errors"
)

// Sink is the underlying log primitive. Write returns the number of bytes
// it wrote for the record.
type Sink interface {
	Write(level Level, tag, msg string, cause error) int
}

// SlogSink writes one JSON object per record using log/slog:
//
//	{"time":"...","level":"INFO","tag":"capture","msg":"...","cause":"..."}
//
// It is safe for concurrent use.
type SlogSink struct {
	mu      sync.Mutex
	counter *countingWriter
	handler slog.Handler
	closer  io.Closer
}

type countingWriter struct {
	w io.Writer
	n int
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += n
	return n, err
}

// NewSlogSink creates a sink writing JSON records to w.
func NewSlogSink(w io.Writer) *SlogSink {
	cw := &countingWriter{w: w}
	opts := &slog.HandlerOptions{
		Level: LevelTrace.slogLevel(),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(levelFromSlog(lvl).String())
				}
			}
			return a
		},
	}
	s := &SlogSink{counter: cw, handler: slog.NewJSONHandler(cw, opts)}
	if c, ok := w.(io.Closer); ok && w != os.Stderr && w != os.Stdout {
		s.closer = c
	}
	return s
}

// NewFileSink creates a sink that writes to path, rotating the file per
// config. The parent directory is created if needed.
func NewFileSink(path string, config RotationConfig) (*SlogSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	rw, err := NewRotatingWriter(path, config)
	if err != nil {
		return nil, err
	}
	return NewSlogSink(rw), nil
}

// Write implements Sink.
func (s *SlogSink) Write(level Level, tag, msg string, cause error) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counter.n = 0
	logger := slog.New(s.handler)
	attrs := []slog.Attr{slog.String("tag", tag)}
	if cause != nil {
		attrs = append(attrs, slog.String("cause", StackTraceString(cause)))
	}
	logger.LogAttrs(context.Background(), level.slogLevel(), msg, attrs...)
	return s.counter.n
}

// Close closes the underlying writer if the sink owns one.
func (s *SlogSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}

func levelFromSlog(l slog.Level) Level {
	for _, lvl := range []Level{LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError} {
		if l == lvl.slogLevel() {
			return lvl
		}
	}
	return LevelAssert
}

// StackTraceString renders an error and the chain of errors it wraps, one
// per line, outermost first.
func StackTraceString(err error) string {
	if err == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(err.Error())
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		sb.WriteString("\n\tcaused by: ")
		sb.WriteString(cause.Error())
	}
	return sb.String()
}

// nopSink discards everything and reports zero bytes.
type nopSink struct{}

func (nopSink) Write(Level, string, string, error) int { return 0 }
