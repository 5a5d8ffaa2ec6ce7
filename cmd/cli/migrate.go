package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sevigo/review-broker/internal/config"
	"github.com/sevigo/review-broker/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the Postgres schema",
}

func withDatabase(fn func(*db.DB) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	conn, err := db.Open(&cfg.Database)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(_ *cobra.Command, _ []string) error {
		return withDatabase(func(conn *db.DB) error {
			if err := conn.RunMigrations(); err != nil {
				return err
			}
			successColor.Println("Schema is up to date.")
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(_ *cobra.Command, _ []string) error {
		return withDatabase(func(conn *db.DB) error {
			if err := conn.RollbackMigration(); err != nil {
				return err
			}
			warnColor.Println("Rolled back one migration.")
			return nil
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	RunE: func(_ *cobra.Command, _ []string) error {
		return withDatabase(func(conn *db.DB) error {
			version, dirty, err := conn.MigrationVersion()
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(map[string]any{"version": version, "dirty": dirty})
			}
			if dirty {
				errorColor.Printf("Schema version %d (dirty)\n", version)
				return nil
			}
			infoColor.Printf("Schema version %d\n", version)
			return nil
		})
	},
}

func init() { //nolint:gochecknoinits // Cobra command registration
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}
