package cli

import (
	"github.com/spf13/cobra"

	"github.com/civicpulse/civicpulse/internal"
)

func newMigrateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.open(cmd.Context()); err != nil {
				return err
			}
			if err := internal.RunMigrations(app.db); err != nil {
				return err
			}
			return writeMigrationVersion(cmd, app)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.open(cmd.Context()); err != nil {
				return err
			}
			if err := internal.RollbackMigration(app.db); err != nil {
				return err
			}
			return writeMigrationVersion(cmd, app)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied migration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.open(cmd.Context()); err != nil {
				return err
			}
			return writeMigrationVersion(cmd, app)
		},
	})

	return cmd
}

func writeMigrationVersion(cmd *cobra.Command, app *App) error {
	v, err := internal.MigrationVersion(app.db)
	if err != nil {
		return err
	}
	return writeOut(cmd, app, map[string]any{"version": v})
}
