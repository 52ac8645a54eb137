package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"libcirc/internal/platform/config"
	"libcirc/internal/platform/db"
	"libcirc/internal/platform/logging"
)

type rootOptions struct {
	configPath string
}

// NewRootCommand builds the libcirc command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "libcirc",
		Short:         "Library circulation backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "path to the YAML config file")

	cmd.AddCommand(
		newServeCommand(opts),
		newMigrateCommand(opts),
		newSeedCommand(opts),
		newStatsCommand(opts),
	)
	return cmd
}

func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// bootstrap loads config, builds the logger and opens the database.
func (o *rootOptions) bootstrap(ctx context.Context) (*config.Config, *db.DB, *log.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := logging.New(cfg.Log, os.Stderr)
	logger.Info("config loaded", "mode", cfg.Mode, "driver", cfg.DB.Driver)

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := conn.Migrate(ctx); err != nil {
		conn.Close()
		return nil, nil, nil, err
	}
	return cfg, conn, logger, nil
}
