package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Togather-Foundation/gatherings/internal/config"
	"github.com/Togather-Foundation/gatherings/internal/storage/postgres"
)

func newMigrateCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
		Long: `Apply or roll back schema migrations with golang-migrate.

Migrations are read from DATABASE_MIGRATIONS_PATH
(default: internal/storage/postgres/migrations).`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := migrationConfig(root)
			if err != nil {
				return err
			}
			if err := postgres.MigrateUp(cfg.URL, cfg.MigrationsPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := migrationConfig(root)
			if err != nil {
				return err
			}
			if err := postgres.MigrateDown(cfg.URL, cfg.MigrationsPath, steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := migrationConfig(root)
			if err != nil {
				return err
			}
			version, dirty, err := postgres.MigrationVersion(cfg.URL, cfg.MigrationsPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version: %d dirty: %t\n", version, dirty)
			return nil
		},
	})

	return cmd
}

func migrationConfig(root *rootOptions) (config.DatabaseConfig, error) {
	cfg, err := root.loadConfig()
	if err != nil {
		return config.DatabaseConfig{}, err
	}
	if cfg.Database.URL == memoryDatabaseURL {
		return config.DatabaseConfig{}, fmt.Errorf("migrations need a PostgreSQL DATABASE_URL")
	}
	return cfg.Database, nil
}
