package main

import (
	"github.com/bher20/ebillmanager/internal/migrate"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

func init() {
	for _, sub := range []struct {
		use, short string
		fn         func(cmd *cobra.Command, driver, dsn string) error
	}{
		{"up", "Apply all pending migrations", func(cmd *cobra.Command, driver, dsn string) error {
			return migrate.Up(cmd.Context(), driver, dsn)
		}},
		{"down", "Roll back the latest migration", func(cmd *cobra.Command, driver, dsn string) error {
			return migrate.Down(cmd.Context(), driver, dsn)
		}},
		{"status", "Show migration status", func(cmd *cobra.Command, driver, dsn string) error {
			return migrate.Status(cmd.Context(), driver, dsn)
		}},
	} {
		fn := sub.fn
		migrateCmd.AddCommand(&cobra.Command{
			Use:   sub.use,
			Short: sub.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, _, err := loadConfig()
				if err != nil {
					return err
				}
				return fn(cmd, cfg.Storage.Driver, cfg.Storage.DSN)
			},
		})
	}
	rootCmd.AddCommand(migrateCmd)
}
