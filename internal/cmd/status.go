package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Iron-Ham/caplog/internal/capture"
)

const timeLayout = "2006-01-02 15:04:05"

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether capture is running and with which settings",
	Args:  cobra.NoArgs,
	RunE:  withApp(runStatus),
}

var statusJSON bool

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the status as JSON")
}

func runStatus(cmd *cobra.Command, args []string, a *app) error {
	ctx, cancel := a.commandContext(cmd)
	defer cancel()

	st, err := a.sup.Status(ctx)
	if err != nil {
		// Settings are still worth showing when the owner is unknown.
		a.logger.Warn("cmd", "status is incomplete", err)
	}

	out := cmd.OutOrStdout()
	if statusJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
	fmt.Fprint(out, renderStatus(a.host.Name, st, isTerminal(os.Stdout), terminalWidth(os.Stdout)))
	return nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// statusStyles holds the styles used by renderStatus. The zero value
// renders plain text.
type statusStyles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	running lipgloss.Style
	stopped lipgloss.Style
	dim     lipgloss.Style
}

func newStatusStyles(styled bool) statusStyles {
	if !styled {
		plain := lipgloss.NewStyle()
		return statusStyles{title: plain, label: plain, running: plain, stopped: plain, dim: plain}
	}
	return statusStyles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		label:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(14),
		running: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		stopped: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		dim:     lipgloss.NewStyle().Faint(true),
	}
}

// renderStatus formats st for the terminal. Long values are cut to width
// columns; 0 disables that.
func renderStatus(hostName string, st capture.Status, styled bool, width int) string {
	s := newStatusStyles(styled)
	var b strings.Builder

	row := func(label, value string) {
		var line string
		if styled {
			line = s.label.Render(label) + value
		} else {
			line = fmt.Sprintf("%-14s%s", label, value)
		}
		b.WriteString(truncate(line, width) + "\n")
	}
	orNone := func(v string) string {
		if v == "" {
			return s.dim.Render("(not set)")
		}
		return v
	}

	b.WriteString(s.title.Render("capture for "+hostName) + "\n")
	if st.Running {
		row("state", s.running.Render("running")+" pid "+st.PID)
	} else {
		row("state", s.stopped.Render("stopped"))
	}
	row("owner", orNone(st.Owner))
	if p := st.Process; p != nil {
		row("memory", formatBytes(p.RSSBytes))
		row("cpu", fmt.Sprintf("%.1f%%", p.CPUPercent))
		if !p.Started.IsZero() {
			row("since", p.Started.Format(timeLayout))
		}
		if p.Cmdline != "" {
			row("command", p.Cmdline)
		}
	}

	snap := st.Settings
	row("destination", orNone(snap.Destination))
	row("rotation", fmt.Sprintf("%d KB x %d", snap.MaxFileSizeKB, snap.MaxFiles))
	row("format", string(snap.Format))
	row("filter tag", orNone(snap.FilterTag))
	row("checkpoint", orNone(snap.Since))
	return b.String()
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
