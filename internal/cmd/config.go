package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/caplog/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify caplog configuration",
	Long: `View or modify caplog configuration.

Without arguments, displays the current configuration.
Capture settings such as the destination are not part of this file; see
'caplog set' and 'caplog settings'.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  caplog config set capture.host_name com.example.app
  caplog config set capture.watch_interval 10s
  caplog config set logging.level debug

Valid keys:
  logging.level                   - Diagnostics threshold
  logging.default_tag             - Tag used when a call omits one
  logging.file                    - Diagnostics file (empty for stderr)
  logging.max_size_mb             - Rotate the diagnostics file at this size
  logging.max_backups             - Rotated diagnostics files to keep
  logging.compress                - Gzip rotated diagnostics files (true/false)
  capture.tool                    - Capture command
  capture.list_command            - Process listing command
  capture.kill_command            - Signal command
  capture.host_name               - Command name of the host process
  capture.state_dir               - Directory holding capture state
  capture.namespace               - Settings namespace
  capture.console_file            - Where the capture tool's own output goes
  capture.watch_interval          - Liveness check interval for 'caplog watch'
  capture.command_timeout         - Bound on each listing or signal command
  capture.pass_since_checkpoint   - Forward the stored checkpoint to -T (true/false)`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/caplog/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

// configKeys maps every settable key to its value kind.
var configKeys = map[string]string{
	"logging.level":                 "string",
	"logging.default_tag":           "string",
	"logging.file":                  "string",
	"logging.max_size_mb":           "int",
	"logging.max_backups":           "int",
	"logging.compress":              "bool",
	"capture.tool":                  "string",
	"capture.list_command":          "string",
	"capture.list_name_flag":        "string",
	"capture.kill_command":          "string",
	"capture.host_name":             "string",
	"capture.state_dir":             "string",
	"capture.namespace":             "string",
	"capture.console_file":          "string",
	"capture.watch_interval":        "duration",
	"capture.command_timeout":       "duration",
	"capture.pass_since_checkpoint": "bool",
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintln(out)

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Config file: (none - using defaults)\n")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "logging:")
	fmt.Fprintf(out, "  level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "  default_tag: %s\n", cfg.Logging.DefaultTag)
	fmt.Fprintf(out, "  file: %s\n", cfg.Logging.File)
	fmt.Fprintf(out, "  max_size_mb: %d\n", cfg.Logging.MaxSizeMB)
	fmt.Fprintf(out, "  max_backups: %d\n", cfg.Logging.MaxBackups)
	fmt.Fprintf(out, "  compress: %v\n", cfg.Logging.Compress)

	fmt.Fprintln(out, "capture:")
	fmt.Fprintf(out, "  tool: %s\n", cfg.Capture.Tool)
	fmt.Fprintf(out, "  list_command: %s\n", cfg.Capture.ListCommand)
	fmt.Fprintf(out, "  list_args: %v\n", cfg.Capture.ListArgs)
	fmt.Fprintf(out, "  list_name_flag: %s\n", cfg.Capture.ListNameFlag)
	fmt.Fprintf(out, "  kill_command: %s\n", cfg.Capture.KillCommand)
	fmt.Fprintf(out, "  host_name: %s\n", cfg.Capture.ResolveHostName())
	fmt.Fprintf(out, "  state_dir: %s\n", cfg.Capture.ResolveStateDir())
	fmt.Fprintf(out, "  namespace: %s\n", cfg.Capture.Namespace)
	fmt.Fprintf(out, "  console_file: %s\n", cfg.Capture.ResolveConsoleFile())
	fmt.Fprintf(out, "  watch_interval: %s\n", cfg.Capture.WatchInterval)
	fmt.Fprintf(out, "  command_timeout: %s\n", cfg.Capture.CommandTimeout)
	fmt.Fprintf(out, "  pass_since_checkpoint: %v\n", cfg.Capture.PassSinceCheckpoint)

	return nil
}

// parseConfigValue converts value to the kind registered for key.
func parseConfigValue(key, value string) (any, error) {
	kind, ok := configKeys[key]
	if !ok {
		return nil, fmt.Errorf("unknown configuration key: %s\nRun 'caplog config set --help' to see valid keys", key)
	}

	switch kind {
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return b, nil
	case "int":
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		return n, nil
	case "duration":
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected a duration such as 5s", key)
		}
		return d.String(), nil
	}
	return value, nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	typedValue, err := parseConfigValue(key, value)
	if err != nil {
		return err
	}

	previous := viper.Get(key)
	viper.Set(key, typedValue)
	if _, err := config.Load(); err != nil {
		viper.Set(key, previous)
		return err
	}

	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(cmd.OutOrStdout(), "Config saved to %s\n", configFile)
	return nil
}

const defaultConfigContent = `# caplog configuration

# caplog's own diagnostics
logging:
  # trace, debug, info, warn, error, assert or none (empty: build default)
  level: ""
  default_tag: Log
  # Empty writes to stderr
  file: ""
  max_size_mb: 10
  max_backups: 3
  compress: false

# The supervised capture tool
capture:
  tool: logcat
  list_command: ps
  list_args: []
  # Flag that narrows the listing to one command name, e.g. -C. Empty lists
  # every process and filters in caplog.
  list_name_flag: ""
  kill_command: kill
  # Command name of the host process; its user owns the capture process.
  # Empty uses the caplog executable's name.
  host_name: ""
  # Empty uses ~/.config/caplog/state
  state_dir: ""
  namespace: LogcatPref
  console_file: ""
  watch_interval: 5s
  command_timeout: 10s
  # When false, "-T 0" is passed whenever a checkpoint is stored.
  pass_since_checkpoint: false
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'caplog config set' to modify values", configFile)
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configFile, []byte(defaultConfigContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configFile)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", config.ConfigFile())
	}

	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Fprintf(out, "  2. $HOME/.config/caplog/config.yaml\n")
	fmt.Fprintln(out, "\nEnvironment variables: CAPLOG_* (e.g., CAPLOG_CAPTURE_HOST_NAME)")
	return nil
}
