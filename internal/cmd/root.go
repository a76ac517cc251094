package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/caplog/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "caplog",
	Short: "Supervise a continuous log-capture process",
	Long: `caplog launches the log-capture tool in the background, tracks it through
the process table so that separate invocations agree on whether it runs, and
restarts it with persisted settings (destination, rotation, format, tag
filter and since-checkpoint).`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/caplog/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "diagnostics threshold (trace, debug, info, warn, error, assert, none)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/caplog")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("CAPLOG")
	// e.g., CAPLOG_CAPTURE_HOST_NAME for capture.host_name
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
