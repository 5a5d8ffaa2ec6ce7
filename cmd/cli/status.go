package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sevigo/review-broker/internal/core"
	"github.com/sevigo/review-broker/internal/wire"
)

var statusCmd = &cobra.Command{
	Use:   "status [task-id]",
	Short: "Shows the status of a review task",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		toolkit, cleanup, err := wire.InitializeToolkit(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer cleanup()

		task, err := toolkit.Results.Status(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to retrieve task: %w", err)
		}

		if outputJSON {
			return printJSON(task)
		}
		printTask(task)
		return nil
	},
}

var resultCmd = &cobra.Command{
	Use:   "result [task-id]",
	Short: "Prints the review produced by a finished task",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		toolkit, cleanup, err := wire.InitializeToolkit(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer cleanup()

		task, err := toolkit.Results.Result(ctx, args[0])
		if errors.Is(err, core.ErrNotReady) {
			warnColor.Printf("Task %s is still %s, try again later.\n", task.ID, task.Status)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to retrieve result: %w", err)
		}

		if outputJSON {
			return printJSON(task)
		}
		printTask(task)
		printReview(task.Result)
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resultCmd)
}
