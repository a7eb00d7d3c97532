package main

import (
	"github.com/spf13/cobra"

	"github.com/servisdesk/servisdesk/internal/persistence"
)

var migrateDown bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadBase()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		if migrateDown {
			return persistence.RollbackMigration(cfg.Postgres.DSN, logger)
		}
		return persistence.RunMigrations(cfg.Postgres.DSN, logger)
	},
}
