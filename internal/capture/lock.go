package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/alexflint/go-filemutex"
)

// startLock serializes Start within this process and, when path is set,
// across every process using the same lock file.
type startLock struct {
	mu   sync.Mutex
	path string
}

// acquire blocks until the lock is held and returns its release function.
func (l *startLock) acquire() (func(), error) {
	l.mu.Lock()
	if l.path == "" {
		return l.mu.Unlock, nil
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		l.mu.Unlock()
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	fm, err := filemutex.New(l.path)
	if err != nil {
		l.mu.Unlock()
		return nil, fmt.Errorf("failed to open start lock: %w", err)
	}
	if err := fm.Lock(); err != nil {
		_ = fm.Close()
		l.mu.Unlock()
		return nil, fmt.Errorf("failed to acquire start lock: %w", err)
	}
	return func() {
		_ = fm.Unlock()
		_ = fm.Close()
		l.mu.Unlock()
	}, nil
}
