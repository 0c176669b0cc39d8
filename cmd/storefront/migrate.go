package main

import (
	"github.com/example/storefront/pkg/repository"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			db, err := repository.OpenDatabase(&cfg.Database, logger)
			if err != nil {
				return err
			}
			if err := repository.Migrate(db); err != nil {
				return err
			}
			logger.Info("Schema migrated", zap.String("driver", cfg.Database.Driver))
			return nil
		},
	}
}
