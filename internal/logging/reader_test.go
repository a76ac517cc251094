package logging

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/caplog/internal/errors"
)

func TestReadEntries_SkipsGarbage(t *testing.T) {
	input := strings.Join([]string{
		`{"time":"2026-01-02T03:04:05Z","level":"INFO","tag":"a","msg":"one"}`,
		`not json`,
		``,
		`{"time":"2026-01-02T03:04:06Z","level":"ERROR","tag":"b","msg":"two","cause":"boom"}`,
	}, "\n")

	entries, err := ReadEntries(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[1].Cause != "boom" || entries[1].Severity() != LevelError {
		t.Errorf("unexpected second entry %+v", entries[1])
	}
}

func TestReassemble_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := New(NewSlogSink(&buf), WithLevel(LevelTrace), WithMaxChunk(10))

	long := strings.Repeat("abcdefghij", 4) + "xyz"
	l.Info("before", "short")
	l.Error("big", long, errors.New("root"))
	l.Info("after", "tail")

	entries, err := ReadEntries(&buf)
	if err != nil {
		t.Fatalf("ReadEntries failed: %v", err)
	}
	if len(entries) != 2+5+1 {
		t.Fatalf("expected 8 raw records, got %d", len(entries))
	}

	got := Reassemble(entries)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries after reassembly, got %d", len(got))
	}
	if got[1].Msg != long {
		t.Errorf("reassembled msg = %q, want %q", got[1].Msg, long)
	}
	if got[1].Cause != "root" {
		t.Errorf("reassembled cause = %q, want root", got[1].Cause)
	}
	if got[0].Msg != "short" || got[2].Msg != "tail" {
		t.Errorf("neighbouring entries changed: %q, %q", got[0].Msg, got[2].Msg)
	}
}

func TestReassemble_InterleavedGoroutinesStaySeparate(t *testing.T) {
	entries := []Entry{
		{Level: "INFO", Tag: "t", Msg: "0<1>aa"},
		{Level: "INFO", Tag: "t", Msg: "0<2>bb"},
		{Level: "INFO", Tag: "t", Msg: "1<2>cc"},
	}
	got := Reassemble(entries)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(got), got)
	}
	if got[0].Msg != "aa" || got[1].Msg != "bbcc" {
		t.Errorf("unexpected messages %q, %q", got[0].Msg, got[1].Msg)
	}
}

func TestFilter_Apply(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{Time: base, Level: "DEBUG", Tag: "capture", Msg: "spawned"},
		{Time: base.Add(time.Minute), Level: "WARN", Tag: "capture", Msg: "kill failed"},
		{Time: base.Add(2 * time.Minute), Level: "ERROR", Tag: "pstable", Msg: "parse failed"},
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"zero filter", Filter{}, 3},
		{"min level", Filter{MinLevel: LevelWarn}, 2},
		{"tag", Filter{Tag: "capture"}, 2},
		{"since", Filter{Since: base.Add(90 * time.Second)}, 1},
		{"contains", Filter{Contains: "failed"}, 2},
		{"combined", Filter{MinLevel: LevelWarn, Tag: "capture"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Apply(entries); len(got) != tt.want {
				t.Errorf("Apply() returned %d entries, want %d", len(got), tt.want)
			}
		})
	}
}

func TestReadFile_IncludesBackupsOldestFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "caplog.log")
	line := func(msg string) string {
		return fmt.Sprintf(`{"time":"2026-01-02T03:04:05Z","level":"INFO","tag":"t","msg":%q}`+"\n", msg)
	}
	files := map[string]string{
		path + ".2": line("oldest"),
		path + ".1": line("older"),
		path:        line("current"),
	}
	for p, content := range files {
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", p, err)
		}
	}

	entries, err := ReadFile(path, 3)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	var msgs []string
	for _, e := range entries {
		msgs = append(msgs, e.Msg)
	}
	if strings.Join(msgs, ",") != "oldest,older,current" {
		t.Errorf("order = %v", msgs)
	}
}

func TestReadFile_Missing(t *testing.T) {
	entries, err := ReadFile(filepath.Join(t.TempDir(), "absent.log"), 2)
	if err != nil {
		t.Fatalf("ReadFile on missing file = %v, want nil", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}
