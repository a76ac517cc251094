package capture

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Iron-Ham/caplog/internal/errors"
	"github.com/Iron-Ham/caplog/internal/prefs"
)

// Keys of the capture configuration in its prefs namespace.
const (
	KeyOwner       = "AppLinuxUserName"
	KeySince       = "LogcatSince"
	KeyMaxFileSize = "LogcatFileMaxSize"
	KeyFormat      = "LogcatFormat"
	KeyMaxFiles    = "LogcatMaxLogFile"
	KeyFilterTag   = "LogcatFilterLogTag"
	KeyDestination = "LogcatPath"
)

// DefaultNamespace is the prefs namespace holding the capture configuration.
const DefaultNamespace = "LogcatPref"

// Defaults applied when a key is unset.
const (
	DefaultMaxFileSizeKB = 256
	DefaultMaxFiles      = 1
	DefaultFormat        = FormatTime
)

// SinceLayout is the time layout of the since-checkpoint, the form the
// capture tool's -T flag accepts.
const SinceLayout = "01-02 15:04:05.000"

// Format is the capture tool's output format (its -v flag).
type Format string

// Formats understood by the capture tool.
const (
	FormatBrief      Format = "brief"
	FormatProcess    Format = "process"
	FormatTag        Format = "tag"
	FormatThread     Format = "thread"
	FormatRaw        Format = "raw"
	FormatTime       Format = "time"
	FormatThreadTime Format = "threadtime"
	FormatLong       Format = "long"
)

// Formats returns every supported format.
func Formats() []Format {
	return []Format{FormatBrief, FormatProcess, FormatTag, FormatThread, FormatRaw, FormatTime, FormatThreadTime, FormatLong}
}

// ParseFormat converts a name (case-insensitive) to a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown format %q", errors.ErrInvalidInput, s)
}

// Settings is the typed view of the capture configuration stored in a
// prefs namespace. Setters write through immediately and never touch a
// running capture process; changes apply on the next start.
type Settings struct {
	store *prefs.Store
}

// NewSettings wraps store.
func NewSettings(store *prefs.Store) *Settings {
	return &Settings{store: store}
}

// Destination returns the capture file path, if one was set.
func (s *Settings) Destination() (string, bool) {
	return s.nonEmpty(KeyDestination)
}

// SetDestination stores path as the capture file, made absolute.
func (s *Settings) SetDestination(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: empty destination", errors.ErrInvalidInput)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve destination: %w", err)
	}
	return s.store.SetString(KeyDestination, abs)
}

// MaxFileSizeKB returns the rotation size in KB.
func (s *Settings) MaxFileSizeKB() int {
	return s.store.GetInt(KeyMaxFileSize, DefaultMaxFileSizeKB)
}

// SetMaxFileSize stores the rotation size in KB.
func (s *Settings) SetMaxFileSize(kb int) error {
	if kb <= 0 {
		return fmt.Errorf("%w: max file size must be positive, got %d", errors.ErrInvalidInput, kb)
	}
	return s.store.SetInt(KeyMaxFileSize, kb)
}

// MaxFiles returns the number of rotated files.
func (s *Settings) MaxFiles() int {
	return s.store.GetInt(KeyMaxFiles, DefaultMaxFiles)
}

// SetMaxFiles stores the number of rotated files.
func (s *Settings) SetMaxFiles(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: max files must be positive, got %d", errors.ErrInvalidInput, n)
	}
	return s.store.SetInt(KeyMaxFiles, n)
}

// Format returns the output format. A stored value that is not a known
// format yields the default.
func (s *Settings) Format() Format {
	v, ok := s.nonEmpty(KeyFormat)
	if !ok {
		return DefaultFormat
	}
	f, err := ParseFormat(v)
	if err != nil {
		return DefaultFormat
	}
	return f
}

// SetFormat stores the output format.
func (s *Settings) SetFormat(f Format) error {
	if _, err := ParseFormat(string(f)); err != nil {
		return err
	}
	return s.store.SetString(KeyFormat, string(f))
}

// FilterTag returns the tag capture is restricted to, if any.
func (s *Settings) FilterTag() (string, bool) {
	return s.nonEmpty(KeyFilterTag)
}

// SetFilterTag restricts capture to tag. An empty tag removes the filter.
func (s *Settings) SetFilterTag(tag string) error {
	if tag == "" {
		return s.store.Remove(KeyFilterTag)
	}
	return s.store.SetString(KeyFilterTag, tag)
}

// Since returns the stored since-checkpoint, if any.
func (s *Settings) Since() (string, bool) {
	return s.nonEmpty(KeySince)
}

// SetSince stores t as the since-checkpoint.
func (s *Settings) SetSince(t time.Time) error {
	return s.store.SetString(KeySince, t.Format(SinceLayout))
}

// ClearSince removes the since-checkpoint.
func (s *Settings) ClearSince() error {
	return s.store.Remove(KeySince)
}

// Owner returns the cached owning identity, if any.
func (s *Settings) Owner() (string, bool) {
	return s.nonEmpty(KeyOwner)
}

// SetOwner caches the owning identity.
func (s *Settings) SetOwner(user string) error {
	return s.store.SetString(KeyOwner, user)
}

// ClearOwner drops the cached owning identity.
func (s *Settings) ClearOwner() error {
	return s.store.Remove(KeyOwner)
}

func (s *Settings) nonEmpty(key string) (string, bool) {
	v, ok := s.store.GetString(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Snapshot is a point-in-time copy of the capture configuration.
type Snapshot struct {
	Destination   string `json:"destination,omitempty"`
	MaxFileSizeKB int    `json:"max_file_size_kb"`
	MaxFiles      int    `json:"max_files"`
	Format        Format `json:"format"`
	FilterTag     string `json:"filter_tag,omitempty"`
	Since         string `json:"since,omitempty"`
	Owner         string `json:"owner,omitempty"`
}

// Snapshot reads every value at once.
func (s *Settings) Snapshot() Snapshot {
	snap := Snapshot{
		MaxFileSizeKB: s.MaxFileSizeKB(),
		MaxFiles:      s.MaxFiles(),
		Format:        s.Format(),
	}
	snap.Destination, _ = s.Destination()
	snap.FilterTag, _ = s.FilterTag()
	snap.Since, _ = s.Since()
	snap.Owner, _ = s.Owner()
	return snap
}

// ParseSince reads a since-checkpoint. The layout carries no year, so the
// year of ref is assumed, stepping back one year if that puts the
// checkpoint after ref.
func ParseSince(value string, ref time.Time) (time.Time, error) {
	t, err := time.ParseInLocation(SinceLayout, value, ref.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: since-checkpoint %q: %v", errors.ErrInvalidInput, value, err)
	}
	t = t.AddDate(ref.Year()-t.Year(), 0, 0)
	if t.After(ref.Add(24 * time.Hour)) {
		t = t.AddDate(-1, 0, 0)
	}
	return t, nil
}
