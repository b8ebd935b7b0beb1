package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/numo-systems/numo-admin/gateway/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, err := postgresURL()
		if err != nil {
			return err
		}
		return migrations.Up(url)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, err := postgresURL()
		if err != nil {
			return err
		}
		steps, _ := cmd.Flags().GetInt("steps")
		return migrations.Down(url, steps)
	},
}

func postgresURL() (string, error) {
	if cfg.Database.Type != "postgres" {
		return "", errors.New("migrations need database.type postgres")
	}
	return cfg.Database.URL, nil
}

func init() {
	migrateDownCmd.Flags().Int("steps", 1, "number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}
