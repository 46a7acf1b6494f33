package commands

import (
	"github.com/dyluth/warren/internal/printer"
	"github.com/dyluth/warren/internal/scaffold"
	"github.com/spf13/cobra"
)

var (
	initDir        string
	initInstance   string
	initStore      string
	initRedisURL   string
	initSQLitePath string
	initForce      bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter warren.yml",
	Long: `Write a warren.yml with every setting at its default value.

Use --force to overwrite an existing warren.yml.

Examples:
  warren init
  warren init --store sqlite --sqlite-path world.db --instance mud-1`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initDir, "dir", ".", "Directory to write warren.yml into")
	initCmd.Flags().StringVar(&initInstance, "instance", "default", "Instance name")
	initCmd.Flags().StringVar(&initStore, "store", "redis", "Store driver: redis or sqlite")
	initCmd.Flags().StringVar(&initRedisURL, "redis-url", "", "Redis URL (redis store)")
	initCmd.Flags().StringVar(&initSQLitePath, "sqlite-path", "", "Database file (sqlite store)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing warren.yml")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path, err := scaffold.Initialize(scaffold.Options{
		Dir:        initDir,
		Instance:   initInstance,
		Driver:     initStore,
		RedisURL:   initRedisURL,
		SQLitePath: initSQLitePath,
		Force:      initForce,
	})
	if err != nil {
		return printer.Error("initialization failed", err.Error(), nil)
	}

	printer.Success("Created %s\n", path)
	printer.Info("\nNext steps:\n")
	printer.Info("  1. Review the store and listen settings\n")
	printer.Info("  2. Run 'warren serve' to start the editor API\n")
	printer.Info("  3. Run 'warren gateway' to expose it to the web editor\n")
	return nil
}
