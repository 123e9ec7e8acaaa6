package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun/migrate"

	"github.com/dhaaraai/go-auth/internal/db"
	"github.com/dhaaraai/go-auth/internal/migrations"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database management commands",
	Long:  `Commands for managing database migrations and schema.`,
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize migration tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close(database)

		if err := migrate.NewMigrator(database, migrations.Migrations).Init(cmd.Context()); err != nil {
			return fmt.Errorf("failed to initialize migrator: %w", err)
		}

		logger.Info("migration tables initialized")
		return nil
	},
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Applies all pending migrations with locking to prevent concurrent migrations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close(database)

		group, err := migrations.Run(cmd.Context(), database)
		if err != nil {
			return err
		}

		if group == 0 {
			logger.Info("no new migrations to apply")
		} else {
			logger.Info("applied migration group", "group", group)
		}
		return nil
	},
}

var dbRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Rollback last migration group",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close(database)

		group, err := migrations.Rollback(cmd.Context(), database)
		if err != nil {
			return err
		}

		if group == 0 {
			logger.Info("no migrations to rollback")
		} else {
			logger.Info("rolled back migration group", "group", group)
		}
		return nil
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close(database)

		ms, err := migrations.Status(cmd.Context(), database)
		if err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}

		out := cmd.OutOrStdout()
		for _, m := range ms {
			status := "pending"
			if m.GroupID > 0 {
				status = fmt.Sprintf("applied (group %d)", m.GroupID)
			}
			fmt.Fprintf(out, "%s: %s\n", m.Name, status)
		}
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbInitCmd, dbMigrateCmd, dbRollbackCmd, dbStatusCmd)
}
