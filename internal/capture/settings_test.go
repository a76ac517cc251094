package capture

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/caplog/internal/errors"
	"github.com/Iron-Ham/caplog/internal/logging"
	"github.com/Iron-Ham/caplog/internal/prefs"
)

func newMemPrefs(t *testing.T) *prefs.Store {
	t.Helper()
	store, err := prefs.Open(afero.NewMemMapFs(), "/state", DefaultNamespace, prefs.WithLogger(logging.Nop()))
	if err != nil {
		t.Fatalf("prefs.Open failed: %v", err)
	}
	return store
}

func TestSettings_Defaults(t *testing.T) {
	s := NewSettings(newMemPrefs(t))

	snap := s.Snapshot()
	want := Snapshot{MaxFileSizeKB: 256, MaxFiles: 1, Format: FormatTime}
	if snap != want {
		t.Errorf("Snapshot() = %+v, want %+v", snap, want)
	}
	if _, ok := s.Destination(); ok {
		t.Error("Destination should be unset")
	}
}

func TestSettings_SetDestinationIsAbsolute(t *testing.T) {
	s := NewSettings(newMemPrefs(t))

	if err := s.SetDestination("logs/capture.txt"); err != nil {
		t.Fatalf("SetDestination failed: %v", err)
	}
	dest, ok := s.Destination()
	if !ok || !filepath.IsAbs(dest) {
		t.Errorf("Destination() = %q, %v; want an absolute path", dest, ok)
	}
	if err := s.SetDestination("  "); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("SetDestination(blank) error = %v", err)
	}
}

func TestSettings_Validation(t *testing.T) {
	s := NewSettings(newMemPrefs(t))

	tests := []struct {
		name string
		err  error
	}{
		{"zero size", s.SetMaxFileSize(0)},
		{"negative files", s.SetMaxFiles(-1)},
		{"unknown format", s.SetFormat("fancy")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, errors.ErrInvalidInput) {
				t.Errorf("error = %v, want ErrInvalidInput", tt.err)
			}
		})
	}
	if snap := s.Snapshot(); snap.MaxFileSizeKB != 256 || snap.MaxFiles != 1 || snap.Format != FormatTime {
		t.Errorf("rejected values were stored: %+v", snap)
	}
}

func TestSettings_FilterTag(t *testing.T) {
	s := NewSettings(newMemPrefs(t))

	_ = s.SetFilterTag("MyApp")
	if tag, ok := s.FilterTag(); !ok || tag != "MyApp" {
		t.Errorf("FilterTag() = %q, %v", tag, ok)
	}

	_ = s.SetFilterTag("")
	if _, ok := s.FilterTag(); ok {
		t.Error("empty tag should remove the filter")
	}
}

func TestSettings_StoredFormatFallsBack(t *testing.T) {
	store := newMemPrefs(t)
	_ = store.SetString(KeyFormat, "garbage")
	if got := NewSettings(store).Format(); got != FormatTime {
		t.Errorf("Format() = %q, want time", got)
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range Formats() {
		got, err := ParseFormat(string(f))
		if err != nil || got != f {
			t.Errorf("ParseFormat(%q) = %q, %v", f, got, err)
		}
	}
	if got, _ := ParseFormat("ThreadTime"); got != FormatThreadTime {
		t.Errorf("ParseFormat is case-sensitive: %q", got)
	}
}

func TestSinceRoundTrip(t *testing.T) {
	s := NewSettings(newMemPrefs(t))
	at := time.Date(2026, 7, 14, 9, 30, 15, 123_000_000, time.Local)

	if err := s.SetSince(at); err != nil {
		t.Fatalf("SetSince failed: %v", err)
	}
	raw, ok := s.Since()
	if !ok || raw != "07-14 09:30:15.123" {
		t.Fatalf("Since() = %q, %v", raw, ok)
	}

	parsed, err := ParseSince(raw, at.Add(time.Hour))
	if err != nil {
		t.Fatalf("ParseSince failed: %v", err)
	}
	if !parsed.Equal(at) {
		t.Errorf("ParseSince = %v, want %v", parsed, at)
	}

	_ = s.ClearSince()
	if _, ok := s.Since(); ok {
		t.Error("ClearSince left the checkpoint behind")
	}
}

func TestParseSince_YearBoundary(t *testing.T) {
	ref := time.Date(2027, 1, 1, 0, 0, 5, 0, time.UTC)
	got, err := ParseSince("12-31 23:59:59.000", ref)
	if err != nil {
		t.Fatalf("ParseSince failed: %v", err)
	}
	if got.Year() != 2026 {
		t.Errorf("year = %d, want 2026", got.Year())
	}
	if _, err := ParseSince("yesterday", ref); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("ParseSince(garbage) error = %v", err)
	}
}
