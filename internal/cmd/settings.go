package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/caplog/internal/capture"
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Change a capture setting",
	Long: `Change a persisted capture setting. Changes take effect the next time
capture starts; 'caplog watch' restarts capture by itself when they change.`,
}

var setDestinationCmd = &cobra.Command{
	Use:   "destination <path>",
	Short: "Set the file the capture tool writes to",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		return setResult(cmd, "destination", args[0], a.sup.SetDestination(args[0]))
	}),
}

var setMaxSizeCmd = &cobra.Command{
	Use:   "max-size <kb>",
	Short: "Set the size in KB at which the capture file is rotated",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		kb, err := positiveInt(args[0])
		if err != nil {
			return err
		}
		return setResult(cmd, "max-size", args[0], a.sup.SetMaxFileSize(kb))
	}),
}

var setMaxFilesCmd = &cobra.Command{
	Use:   "max-files <n>",
	Short: "Set how many rotated capture files are kept",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		n, err := positiveInt(args[0])
		if err != nil {
			return err
		}
		return setResult(cmd, "max-files", args[0], a.sup.SetMaxFiles(n))
	}),
}

var setFormatCmd = &cobra.Command{
	Use:       "format <format>",
	Short:     "Set the capture output format",
	Long:      "Set the capture output format. One of: " + formatNames(),
	Args:      cobra.ExactArgs(1),
	ValidArgs: formatList(),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		f, err := capture.ParseFormat(args[0])
		if err != nil {
			return err
		}
		return setResult(cmd, "format", args[0], a.sup.SetFormat(f))
	}),
}

var setFilterTagCmd = &cobra.Command{
	Use:   "filter-tag [tag]",
	Short: "Capture only one tag; without a tag capture everything",
	Args:  cobra.MaximumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		tag := ""
		if len(args) > 0 {
			tag = args[0]
		}
		return setResult(cmd, "filter-tag", tag, a.sup.SetFilterTag(tag))
	}),
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show the persisted capture settings",
	Args:  cobra.NoArgs,
	RunE:  withApp(runSettings),
}

var settingsJSON bool

func init() {
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(settingsCmd)
	setCmd.AddCommand(setDestinationCmd)
	setCmd.AddCommand(setMaxSizeCmd)
	setCmd.AddCommand(setMaxFilesCmd)
	setCmd.AddCommand(setFormatCmd)
	setCmd.AddCommand(setFilterTagCmd)

	settingsCmd.Flags().BoolVar(&settingsJSON, "json", false, "print the settings as JSON")
}

func setResult(cmd *cobra.Command, key, value string, err error) error {
	if err != nil {
		return err
	}
	if value == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", key)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
	}
	return nil
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: expected integer", s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid value %q: must be positive", s)
	}
	return n, nil
}

func formatList() []string {
	var names []string
	for _, f := range capture.Formats() {
		names = append(names, string(f))
	}
	return names
}

func formatNames() string {
	return strings.Join(formatList(), ", ")
}

func runSettings(cmd *cobra.Command, args []string, a *app) error {
	snap, err := a.sup.Settings()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if settingsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	fmt.Fprintf(out, "Settings file: %s\n\n", a.host.Prefs.Path())
	fmt.Fprintf(out, "destination: %s\n", snap.Destination)
	fmt.Fprintf(out, "max_file_size_kb: %d\n", snap.MaxFileSizeKB)
	fmt.Fprintf(out, "max_files: %d\n", snap.MaxFiles)
	fmt.Fprintf(out, "format: %s\n", snap.Format)
	fmt.Fprintf(out, "filter_tag: %s\n", snap.FilterTag)
	fmt.Fprintf(out, "since: %s\n", snap.Since)
	fmt.Fprintf(out, "owner: %s\n", snap.Owner)
	return nil
}
