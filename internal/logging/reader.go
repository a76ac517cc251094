package logging

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Entry is one record read back from a SlogSink file.
type Entry struct {
	Time  time.Time `json:"time"`
	Level string    `json:"level"`
	Tag   string    `json:"tag"`
	Msg   string    `json:"msg"`
	Cause string    `json:"cause,omitempty"`
}

// Severity returns the parsed level of the entry, or LevelUnresolved.
func (e Entry) Severity() Level {
	lvl, err := ParseLevel(e.Level)
	if err != nil {
		return LevelUnresolved
	}
	return lvl
}

// String renders the entry as a single human readable line.
func (e Entry) String() string {
	var sb strings.Builder
	sb.WriteString(e.Time.Format("01-02 15:04:05.000"))
	sb.WriteByte(' ')
	fmt.Fprintf(&sb, "%-6s %s: %s", e.Level, e.Tag, e.Msg)
	if e.Cause != "" {
		sb.WriteString("\n\t")
		sb.WriteString(e.Cause)
	}
	return sb.String()
}

// ReadEntries parses JSON lines from r. Lines that are not valid records
// are skipped.
func ReadEntries(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("failed to read log entries: %w", err)
	}
	return entries, nil
}

// ReadFile reads path and its rotated backups (path.N .. path.1, gzipped or
// not), returning entries oldest first.
func ReadFile(path string, maxBackups int) ([]Entry, error) {
	var all []Entry
	for i := maxBackups; i >= 1; i-- {
		backup := fmt.Sprintf("%s.%d", path, i)
		entries, err := readMaybeGzip(backup)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		all = append(all, entries...)
	}
	entries, err := readMaybeGzip(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return append(all, entries...), nil
}

func readMaybeGzip(path string) ([]Entry, error) {
	if f, err := os.Open(path + ".gz"); err == nil {
		defer f.Close()
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s.gz: %w", path, err)
		}
		defer zr.Close()
		return ReadEntries(zr)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadEntries(f)
}

var chunkHeader = regexp.MustCompile(`^(\d+)<(\d+)>`)

// Reassemble joins runs of chunk records written for one oversized message
// back into a single entry. A run starts at index 0 and continues while the
// tag, level and goroutine id match and the index increases by one. A
// cause-only record directly after a run is folded into it.
func Reassemble(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for i := 0; i < len(entries); {
		m := chunkHeader.FindStringSubmatch(entries[i].Msg)
		if m == nil || m[1] != "0" {
			out = append(out, entries[i])
			i++
			continue
		}
		tid := m[2]
		head := entries[i]
		var sb strings.Builder
		sb.WriteString(head.Msg[len(m[0]):])

		next := 1
		j := i + 1
		for ; j < len(entries); j++ {
			e := entries[j]
			mm := chunkHeader.FindStringSubmatch(e.Msg)
			if mm == nil || mm[2] != tid || mm[1] != strconv.Itoa(next) || e.Tag != head.Tag || e.Level != head.Level {
				break
			}
			sb.WriteString(e.Msg[len(mm[0]):])
			next++
		}
		head.Msg = sb.String()
		if j < len(entries) && entries[j].Msg == "" && entries[j].Cause != "" && entries[j].Tag == head.Tag {
			head.Cause = entries[j].Cause
			j++
		}
		out = append(out, head)
		i = j
	}
	return out
}

// Filter narrows entries. Zero-valued fields do not filter.
type Filter struct {
	MinLevel Level
	Tag      string
	Since    time.Time
	Contains string
}

// Apply returns the entries matching f, in order.
func (f Filter) Apply(entries []Entry) []Entry {
	var out []Entry
	for _, e := range entries {
		if f.MinLevel > 0 && e.Severity() < f.MinLevel {
			continue
		}
		if f.Tag != "" && e.Tag != f.Tag {
			continue
		}
		if !f.Since.IsZero() && e.Time.Before(f.Since) {
			continue
		}
		if f.Contains != "" && !strings.Contains(e.Msg, f.Contains) {
			continue
		}
		out = append(out, e)
	}
	return out
}
