package cmd

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"golang.org/x/term"
)

// terminalWidth returns the width of f, or 0 when f is not a terminal.
func terminalWidth(f *os.File) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return w
}

// truncate shortens s to maxWidth visible columns, ending in "...". Escape
// sequences are preserved. A maxWidth of 0 leaves s alone.
func truncate(s string, maxWidth int) string {
	if maxWidth <= 0 || lipgloss.Width(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return "..."
	}
	return ansi.Truncate(s, maxWidth, "...")
}
