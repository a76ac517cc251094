package prefs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/alexflint/go-filemutex"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/caplog/internal/errors"
	"github.com/Iron-Ham/caplog/internal/logging"
)

const logTag = "prefs"

// watchDebounce coalesces the bursts of events a single rename produces.
const watchDebounce = 50 * time.Millisecond

// Store is one namespace of persisted values. It is safe for concurrent use.
// On an OS-backed filesystem writes also hold a file mutex next to the
// namespace file, so writers in other processes do not lose updates.
type Store struct {
	mu sync.Mutex

	fs        afero.Fs
	dir       string
	namespace string
	lockPath  string
	logger    *logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open returns the store for namespace under dir, creating dir if needed.
// The namespace file itself is created on the first Set.
func Open(fs afero.Fs, dir, namespace string, opts ...Option) (*Store, error) {
	if namespace == "" {
		return nil, fmt.Errorf("%w: empty namespace", errors.ErrInvalidInput)
	}
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create prefs directory: %w", err)
	}
	s := &Store{fs: fs, dir: dir, namespace: namespace, logger: logging.Default()}
	if _, ok := fs.(*afero.OsFs); ok {
		s.lockPath = s.Path() + ".lock"
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Namespace returns the store's namespace.
func (s *Store) Namespace() string { return s.namespace }

// Path returns the namespace file.
func (s *Store) Path() string {
	return filepath.Join(s.dir, s.namespace+".yaml")
}

// GetString returns the string stored under key. The boolean is false when
// the key is unset or holds a value of another type.
func (s *Store) GetString(key string) (string, bool) {
	v, ok := s.get(key)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	if !ok {
		s.logger.Warn(logTag, fmt.Sprintf("%s/%s holds %T, not a string", s.namespace, key, v))
	}
	return str, ok
}

// GetInt returns the int stored under key, or def when it is unset or not
// an int.
func (s *Store) GetInt(key string, def int) int {
	v, ok := s.get(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		if n == float64(int(n)) {
			return int(n)
		}
	}
	s.logger.Warn(logTag, fmt.Sprintf("%s/%s holds %v, not an int", s.namespace, key, v))
	return def
}

// GetBool returns the bool stored under key, or def when it is unset or
// not a bool.
func (s *Store) GetBool(key string, def bool) bool {
	v, ok := s.get(key)
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		s.logger.Warn(logTag, fmt.Sprintf("%s/%s holds %v, not a bool", s.namespace, key, v))
		return def
	}
	return b
}

// Contains reports whether key is set.
func (s *Store) Contains(key string) bool {
	_, ok := s.get(key)
	return ok
}

// SetString stores value under key.
func (s *Store) SetString(key, value string) error { return s.update(key, value, true) }

// SetInt stores value under key.
func (s *Store) SetInt(key string, value int) error { return s.update(key, value, true) }

// SetBool stores value under key.
func (s *Store) SetBool(key string, value bool) error { return s.update(key, value, true) }

// Remove deletes key. Removing an unset key is not an error.
func (s *Store) Remove(key string) error { return s.update(key, nil, false) }

// All returns every key with its value rendered as a string, sorted by key.
func (s *Store) All() ([][2]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]string{k, render(values[k])})
	}
	return out, nil
}

// Clear removes the namespace file and with it every key.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := s.lockFile()
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.fs.Remove(s.Path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear %s: %w", s.namespace, err)
	}
	return nil
}

func (s *Store) get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		s.logger.Error(logTag, "failed to read "+s.Path(), err)
		return nil, false
	}
	v, ok := values[key]
	return v, ok && v != nil
}

func (s *Store) update(key string, value any, set bool) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", errors.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := s.lockFile()
	if err != nil {
		return err
	}
	defer unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	if set {
		values[key] = value
	} else {
		if _, ok := values[key]; !ok {
			return nil
		}
		delete(values, key)
	}
	return s.save(values)
}

// lockFile takes the cross-process write lock, if the store has one, and
// returns its release function. It must be called with mu held.
func (s *Store) lockFile() (func(), error) {
	if s.lockPath == "" {
		return func() {}, nil
	}
	fm, err := filemutex.New(s.lockPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock for %s: %w", s.namespace, err)
	}
	if err := fm.Lock(); err != nil {
		_ = fm.Close()
		return nil, fmt.Errorf("failed to lock %s: %w", s.namespace, err)
	}
	return func() {
		_ = fm.Unlock()
		_ = fm.Close()
	}, nil
}

// load must be called with mu held. A missing file is an empty namespace.
func (s *Store) load() (map[string]any, error) {
	data, err := afero.ReadFile(s.fs, s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.namespace, err)
	}

	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.namespace, err)
	}
	return values, nil
}

// save must be called with mu held.
func (s *Store) save(values map[string]any) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", s.namespace, err)
	}

	tmp := s.Path() + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.namespace, err)
	}
	if err := s.fs.Rename(tmp, s.Path()); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", s.namespace, err)
	}
	return nil
}

func render(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// Watch calls onChange whenever the namespace file is written, replaced or
// removed, until ctx ends. Bursts of events are coalesced. It watches the
// real filesystem, so it is only meaningful for stores opened on an
// OS-backed afero.Fs.
func (s *Store) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	target := filepath.Clean(s.Path())
	debounce := time.NewTimer(watchDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			debounce.Reset(watchDebounce)

		case <-debounce.C:
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn(logTag, "watch error on "+s.dir, err)
		}
	}
}
