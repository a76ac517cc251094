package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete caplog configuration
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Capture CaptureConfig `mapstructure:"capture"`
}

// LoggingConfig controls caplog's own diagnostics
type LoggingConfig struct {
	// Level is the threshold: "trace", "debug", "info", "warn", "error",
	// "assert" or "none". Empty uses the build-mode default.
	Level string `mapstructure:"level"`
	// DefaultTag is the tag used when a call omits one (default: "Log")
	DefaultTag string `mapstructure:"default_tag"`
	// File is where records are written. Empty writes to stderr.
	// Supports ~ for home directory expansion.
	File string `mapstructure:"file"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
	// Compress gzips rotated log files (default: false)
	Compress bool `mapstructure:"compress"`
}

// CaptureConfig controls how the capture tool is found, launched and stopped
type CaptureConfig struct {
	// Tool is the capture command (default: "logcat")
	Tool string `mapstructure:"tool"`
	// ListCommand lists running processes (default: "ps")
	ListCommand string `mapstructure:"list_command"`
	// ListArgs are passed to ListCommand for a full listing (default: none)
	ListArgs []string `mapstructure:"list_args"`
	// ListNameFlag narrows a listing to one command name, appended as
	// "<list_name_flag> <name>" (e.g. "-C" for procps). Empty always lists
	// every process.
	ListNameFlag string `mapstructure:"list_name_flag"`
	// KillCommand signals a process, invoked as "<kill_command> <pid>" (default: "kill")
	KillCommand string `mapstructure:"kill_command"`
	// HostName is the command name of the host process whose user owns the
	// capture process. Empty uses this executable's base name.
	HostName string `mapstructure:"host_name"`
	// StateDir holds the settings namespace file, the start lock and the
	// console file. Empty uses "<config dir>/state". Supports ~.
	StateDir string `mapstructure:"state_dir"`
	// Namespace names the settings file inside StateDir (default: "LogcatPref")
	Namespace string `mapstructure:"namespace"`
	// ConsoleFile receives the tool's stdout and stderr. Empty uses
	// "<state_dir>/capture-console.log".
	ConsoleFile string `mapstructure:"console_file"`
	// WatchInterval is how often `caplog watch` checks the tool is alive (default: 5s)
	WatchInterval time.Duration `mapstructure:"watch_interval"`
	// CommandTimeout bounds each listing or kill command (default: 10s)
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	// PassSinceCheckpoint forwards the stored since-checkpoint to the tool's
	// -T flag. When false (default) "-T 0" is passed whenever one is stored.
	PassSinceCheckpoint bool `mapstructure:"pass_since_checkpoint"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:      "",
			DefaultTag: "Log",
			File:       "",
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   false,
		},
		Capture: CaptureConfig{
			Tool:                "logcat",
			ListCommand:         "ps",
			ListArgs:            []string{},
			ListNameFlag:        "",
			KillCommand:         "kill",
			HostName:            "",
			StateDir:            "",
			Namespace:           "LogcatPref",
			ConsoleFile:         "",
			WatchInterval:       5 * time.Second,
			CommandTimeout:      10 * time.Second,
			PassSinceCheckpoint: false,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.default_tag", defaults.Logging.DefaultTag)
	viper.SetDefault("logging.file", defaults.Logging.File)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)

	// Capture defaults
	viper.SetDefault("capture.tool", defaults.Capture.Tool)
	viper.SetDefault("capture.list_command", defaults.Capture.ListCommand)
	viper.SetDefault("capture.list_args", defaults.Capture.ListArgs)
	viper.SetDefault("capture.list_name_flag", defaults.Capture.ListNameFlag)
	viper.SetDefault("capture.kill_command", defaults.Capture.KillCommand)
	viper.SetDefault("capture.host_name", defaults.Capture.HostName)
	viper.SetDefault("capture.state_dir", defaults.Capture.StateDir)
	viper.SetDefault("capture.namespace", defaults.Capture.Namespace)
	viper.SetDefault("capture.console_file", defaults.Capture.ConsoleFile)
	viper.SetDefault("capture.watch_interval", defaults.Capture.WatchInterval)
	viper.SetDefault("capture.command_timeout", defaults.Capture.CommandTimeout)
	viper.SetDefault("capture.pass_since_checkpoint", defaults.Capture.PassSinceCheckpoint)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "caplog")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".caplog"
	}
	return filepath.Join(home, ".config", "caplog")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ResolveStateDir returns the directory holding capture state.
func (c *CaptureConfig) ResolveStateDir() string {
	if c.StateDir == "" {
		return filepath.Join(ConfigDir(), "state")
	}
	return expandHome(c.StateDir)
}

// ResolveConsoleFile returns where the capture tool's own output goes.
func (c *CaptureConfig) ResolveConsoleFile() string {
	if c.ConsoleFile == "" {
		return filepath.Join(c.ResolveStateDir(), "capture-console.log")
	}
	return expandHome(c.ConsoleFile)
}

// LockFile returns the path of the cross-process start lock.
func (c *CaptureConfig) LockFile() string {
	return filepath.Join(c.ResolveStateDir(), c.Namespace+".lock")
}

// ResolveHostName returns the configured host name, or the base name of
// the running executable.
func (c *CaptureConfig) ResolveHostName() string {
	if c.HostName != "" {
		return c.HostName
	}
	exe, err := os.Executable()
	if err != nil {
		return filepath.Base(os.Args[0])
	}
	return filepath.Base(exe)
}

// ResolveFile returns the expanded log file path, or "" for stderr.
func (c *LoggingConfig) ResolveFile() string {
	if c.File == "" {
		return ""
	}
	return expandHome(c.File)
}

// expandHome expands a leading ~ to the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
