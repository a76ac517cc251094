// Package testutil provides testing utilities for caplog tests.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// SkipIfNoCommand skips the test if name is not found in PATH.
func SkipIfNoCommand(t *testing.T, name string) {
	t.Helper()

	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not found in PATH, skipping test", name)
	}
}

// WriteFile creates path (and its parent directories) with content.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
}

// FileExists reports whether path exists.
func FileExists(t *testing.T, path string) bool {
	t.Helper()

	_, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("failed to stat %s: %v", path, err)
	}
	return err == nil
}
