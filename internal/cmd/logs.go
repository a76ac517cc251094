package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/caplog/internal/config"
	"github.com/Iron-Ham/caplog/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View caplog's own diagnostics",
	Long: `View and filter the diagnostics caplog writes to logging.file, including
rotated backups. Messages that were split into chunks are joined back
together unless --raw is given.

Examples:
  # Show the last 50 entries
  caplog logs

  # Only warnings and worse from the supervisor
  caplog logs --level warn --tag capture

  # Entries from the last hour mentioning a pid
  caplog logs --since 1h --grep 4242`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var (
	logsTail  int
	logsLevel string
	logsTag   string
	logsSince time.Duration
	logsGrep  string
	logsRaw   bool
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of entries to show (0 for all)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level")
	logsCmd.Flags().StringVar(&logsTag, "tag", "", "Filter by tag")
	logsCmd.Flags().DurationVar(&logsSince, "since", 0, "Show entries newer than this (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Show entries whose message contains this text")
	logsCmd.Flags().BoolVar(&logsRaw, "raw", false, "Do not join chunked messages")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	path := cfg.Logging.ResolveFile()
	if path == "" {
		return fmt.Errorf("logging.file is not set, diagnostics go to stderr")
	}

	filter := logging.Filter{Tag: logsTag, Contains: logsGrep}
	if logsLevel != "" {
		if filter.MinLevel, err = logging.ParseLevel(logsLevel); err != nil {
			return err
		}
	}
	if logsSince > 0 {
		filter.Since = time.Now().Add(-logsSince)
	}

	entries, err := logging.ReadFile(path, cfg.Logging.MaxBackups)
	if err != nil {
		return err
	}
	if !logsRaw {
		entries = logging.Reassemble(entries)
	}
	entries = tail(filter.Apply(entries), logsTail)

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No matching log entries")
		return nil
	}
	printEntries(cmd.OutOrStdout(), entries, isTerminal(os.Stdout), terminalWidth(os.Stdout))
	return nil
}

func tail(entries []logging.Entry, n int) []logging.Entry {
	if n > 0 && len(entries) > n {
		return entries[len(entries)-n:]
	}
	return entries
}

var levelColors = map[logging.Level]lipgloss.Color{
	logging.LevelTrace:  "8",
	logging.LevelDebug:  "8",
	logging.LevelInfo:   "12",
	logging.LevelWarn:   "11",
	logging.LevelError:  "9",
	logging.LevelAssert: "13",
}

// printEntries writes one entry per line. Styled output cuts the first line
// of each entry to width columns.
func printEntries(w io.Writer, entries []logging.Entry, styled bool, width int) {
	for _, e := range entries {
		if !styled {
			fmt.Fprintln(w, e.String())
			continue
		}
		level := lipgloss.NewStyle().Foreground(levelColors[e.Severity()]).Render(fmt.Sprintf("%-6s", e.Level))
		stamp := lipgloss.NewStyle().Faint(true).Render(e.Time.Format("01-02 15:04:05.000"))
		fmt.Fprintln(w, truncate(fmt.Sprintf("%s %s %s: %s", stamp, level, e.Tag, e.Msg), width))
		if e.Cause != "" {
			fmt.Fprintf(w, "\t%s\n", strings.ReplaceAll(e.Cause, "\n", "\n\t"))
		}
	}
}
