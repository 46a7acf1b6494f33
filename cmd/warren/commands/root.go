package commands

import (
	"fmt"
	"os"

	"github.com/dyluth/warren/internal/config"
	"github.com/dyluth/warren/internal/logging"
	"github.com/dyluth/warren/internal/printer"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "warren",
	Short: "Warren - room-graph world editor",
	Long: `Warren serves the editor API for a graph of rooms connected by named,
directed exits, and a gateway that proxies a web editor onto it.

The world lives in Redis (default) or in a local SQLite file. Besides the
servers, warren can list rooms, print neighbourhood graphs, follow exits
by name and stream world changes as they happen.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	// Enable strict flag parsing - unknown flags will cause an error
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute runs the root command.
func Execute() error {
	// Errors are printed by the printer package, not by cobra
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to warren.yml")
}

// loadConfig reads the config file. A missing default file is fine; a missing
// file named with --config is not.
func loadConfig(cmd *cobra.Command) (*config.WarrenConfig, error) {
	explicit := cmd.Flags().Changed("config")
	cfg, err := config.LoadOrDefault(configPath, explicit)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"invalid configuration",
			err.Error(),
			map[string]string{"Config": configPath},
			[]string{"Check warren.yml or the WARREN_* environment variables"},
		)
	}
	return cfg, nil
}

// newLogger builds the structured logger for a server command. Logs go to
// stderr so stdout stays free for command output.
func newLogger(cfg *config.WarrenConfig, component string) (*logrus.Entry, error) {
	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}, os.Stderr)
	if err != nil {
		return nil, err
	}
	return logging.Component(logger, component, cfg.Instance), nil
}
