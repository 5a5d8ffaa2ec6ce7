package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sevigo/review-broker/internal/wire"
)

var purgeCmd = &cobra.Command{
	Use:   "purge-deliveries",
	Short: "Remove webhook delivery records older than the retention window",
	Long: `Removes recorded webhook delivery ids older than WEBHOOK_DELIVERY_RETENTION.
The server runs the same purge on WEBHOOK_PURGE_SCHEDULE; use this command to
run it on demand.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		toolkit, cleanup, err := wire.InitializeToolkit(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer cleanup()

		removed, err := toolkit.Janitor.PurgeExpired(ctx)
		if err != nil {
			return fmt.Errorf("failed to purge deliveries: %w", err)
		}
		if outputJSON {
			return printJSON(map[string]int64{"removed": removed})
		}
		successColor.Printf("Removed %d delivery records.\n", removed)
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra command registration
	rootCmd.AddCommand(purgeCmd)
}
