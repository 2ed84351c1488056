package main

import (
	"delivery_tracker/internal/config"
	"delivery_tracker/internal/database"
	"delivery_tracker/internal/migrations"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations and create the default admin",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(v, configFile)
		if err != nil {
			return err
		}
		applyLogLevel(cfg.LogLevel)

		db, err := database.Initialize(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.DatabaseLog, logger)
		if err != nil {
			return err
		}
		if err := migrations.RunMigrations(db, logger); err != nil {
			return err
		}
		if err := migrations.EnsureAdmin(cmd.Context(), db, cfg.AdminUsername, cfg.AdminPassword, logger); err != nil {
			return err
		}
		if seed, _ := cmd.Flags().GetBool("seed"); seed {
			return migrations.SeedDemo(cmd.Context(), db, logger)
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().Bool("seed", false, "insert demo products, bags, a vehicle and clients")
}
