package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/go-dao/dao"
	"github.com/satishbabariya/go-dao/internal/config"
	"github.com/satishbabariya/go-dao/internal/debug"
	"github.com/satishbabariya/go-dao/internal/ui"
)

var (
	cfgFile     string
	watchConfig bool

	// cfg is loaded before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "daocore",
	Short: "Goroutine-bound query cache for SQL DAOs",
	Long: `daocore exercises the per-goroutine query cache against a real database.

Configuration is read from .daocore.yaml (current directory, home directory
or ~/.config/daocore), DAOCORE_* environment variables, .env / .env.local
files and the flags below, in increasing order of priority.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default .daocore.yaml)")
	flags.String("provider", "", "database provider: sqlite, postgresql or mysql")
	flags.String("database-url", "", "database connection string")
	flags.Bool("debug", false, "enable debug logging")
	flags.BoolVar(&watchConfig, "watch-config", false, "reload the config file when it changes")
}

// Execute is the main entry point for the CLI
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("%v", err)
		return err
	}
	return nil
}

func loadConfig(cmd *cobra.Command, args []string) error {
	loader, err := config.NewLoader(cfgFile)
	if err != nil {
		return err
	}

	v := loader.Viper()
	flags := cmd.Root().PersistentFlags()
	for key, flag := range map[string]string{
		"provider":     "provider",
		"database_url": "database-url",
		"debug":        "debug",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
	}

	cfg, err = loader.Load()
	if err != nil {
		return err
	}
	debug.Init(cfg.Debug)
	debug.Debug("config loaded", "file", loader.ConfigFile(), "provider", cfg.Provider)

	if watchConfig && loader.ConfigFile() != "" {
		loader.Watch(func(updated *config.Config) {
			debug.Init(updated.Debug)
			debug.Info("debug logging toggled", "enabled", updated.Debug)
		})
	}
	return nil
}

// openDatabase opens the configured database and checks its server version.
func openDatabase(ctx context.Context) (*dao.Database, error) {
	db, err := dao.Open(cfg.Provider, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.Debug {
		db.Use(dao.LoggingMiddleware(debug.Logger()))
	}

	if err := db.CheckServerVersion(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
