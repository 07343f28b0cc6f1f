// Package cli implements civicctl, the operator command line for CivicPulse.
package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/civicpulse/civicpulse/internal"
	"github.com/civicpulse/civicpulse/internal/repository"
)

// App carries global flags and the lazily opened environment.
type App struct {
	DatabaseURL string
	PrettyJSON  bool

	cfg    *internal.Config
	db     *sql.DB
	store  repository.Store
	logger *slog.Logger
}

// NewRootCmd builds the civicctl command tree.
func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "civicctl",
		Short:        "CivicPulse operator tools",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Apply pending migrations
  civicctl migrate up

  # Create the administrator from SEED_ADMIN_* settings
  civicctl seed-admin

  # Mint a bearer token for local testing
  civicctl token --email ravi@city.gov
`),
	}

	cmd.PersistentFlags().StringVar(&app.DatabaseURL, "database-url", "", "PostgreSQL URL (default: DATABASE_URL)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")

	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return app.Close()
	}

	cmd.AddCommand(newMigrateCmd(app))
	cmd.AddCommand(newSeedAdminCmd(app))
	cmd.AddCommand(newCreateUserCmd(app))
	cmd.AddCommand(newTokenCmd(app))
	cmd.AddCommand(newPurgeJobsCmd(app))

	return cmd
}

// open loads configuration and connects to the database once.
func (app *App) open(ctx context.Context) error {
	if app.db != nil {
		return nil
	}
	if app.DatabaseURL != "" {
		os.Setenv("DATABASE_URL", app.DatabaseURL)
	}

	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	app.cfg = cfg
	app.logger = internal.NewLogger(os.Stderr, cfg.Env, cfg.LogLevel)

	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("database ping failed: %w", err)
	}
	app.db = db
	app.store = repository.NewStore(db)
	return nil
}

// Close releases the database connection if one was opened.
func (app *App) Close() error {
	if app.db == nil {
		return nil
	}
	err := app.db.Close()
	app.db = nil
	return err
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if app.PrettyJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
