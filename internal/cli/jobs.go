package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/civicpulse/civicpulse/internal/scheduler"
)

func newPurgeJobsCmd(app *App) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "purge-jobs",
		Short: "Delete completed and failed jobs past the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive, got %v", olderThan)
			}
			if err := app.open(cmd.Context()); err != nil {
				return err
			}

			cfg := scheduler.DefaultConfig()
			cfg.JobRetention = olderThan
			n, err := scheduler.New(app.store, nil, nil, cfg, app.logger).PurgeFinishedJobs(cmd.Context())
			if err != nil {
				return err
			}
			return writeOut(cmd, app, map[string]any{"purged": n, "older_than": olderThan.String()})
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", scheduler.DefaultJobRetention, "Retention window")
	return cmd
}
