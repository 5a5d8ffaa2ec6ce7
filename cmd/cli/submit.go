package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevigo/review-broker/internal/core"
	"github.com/sevigo/review-broker/internal/gitutil"
	"github.com/sevigo/review-broker/internal/wire"
)

var (
	submitRevision string
	submitWait     time.Duration
)

var submitCmd = &cobra.Command{
	Use:   "submit [pr-url | repo pr-number]",
	Short: "Submit a pull request for review",
	Long: `Submit a pull request to the shared review queue.

The task is picked up by the workers of a running server, so the CLI must be
configured with the same durable backends (QUEUE_BACKEND=redis and
STORE_BACKEND=postgres).

Examples:
  review-cli submit https://github.com/owner/repo/pull/123
  review-cli submit owner/repo 123 --revision 4f2a9c1 --wait 5m`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSubmit,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	submitCmd.Flags().StringVar(&submitRevision, "revision", "", "Head commit to review; resolved by the worker when empty")
	submitCmd.Flags().DurationVar(&submitWait, "wait", 0, "Poll until the task finishes or the duration passes")
	rootCmd.AddCommand(submitCmd)
}

func parseSubmitArgs(args []string) (string, int, error) {
	if len(args) == 1 {
		repo, pr, err := gitutil.ParsePullRequestURL(args[0])
		if err != nil {
			return "", 0, fmt.Errorf("invalid PR URL: %w\n\nExpected format: https://github.com/owner/repo/pull/123", err)
		}
		return repo.FullName(), pr, nil
	}
	pr, err := strconv.Atoi(args[1])
	if err != nil {
		return "", 0, fmt.Errorf("%w: invalid PR number %q", core.ErrInvalidInput, args[1])
	}
	return args[0], pr, nil
}

func runSubmit(_ *cobra.Command, args []string) error {
	repoRef, prNumber, err := parseSubmitArgs(args)
	if err != nil {
		return err
	}

	ctx := context.Background()
	toolkit, cleanup, err := wire.InitializeToolkit(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer cleanup()

	if !toolkit.SharedState() {
		return fmt.Errorf("submit needs QUEUE_BACKEND=redis and STORE_BACKEND=postgres so a server can pick the task up")
	}

	res, err := toolkit.Dispatcher.Submit(ctx, core.SubmitRequest{
		RepoRef:     repoRef,
		PRNumber:    prNumber,
		Revision:    submitRevision,
		Credentials: core.Credentials{Token: githubToken},
		Source:      "cli",
	})
	if err != nil {
		return fmt.Errorf("failed to submit review: %w", err)
	}

	if !outputJSON {
		titleColor.Printf("Submitted %s #%d\n", repoRef, prNumber)
		dimColor.Printf("   Task: %s (%s)\n", res.TaskID, res.Status)
		if res.Deduplicated {
			dimColor.Println("   Joined a review already in progress")
		}
	}

	if submitWait <= 0 {
		if outputJSON {
			return printJSON(map[string]string{"task_id": res.TaskID, "status": string(res.Status)})
		}
		return nil
	}

	task, err := waitForTask(ctx, toolkit.Results.Status, res.TaskID, submitWait, 2*time.Second)
	if err != nil {
		return err
	}
	if outputJSON {
		return printJSON(task)
	}
	printTask(task)
	printReview(task.Result)
	return nil
}

// waitForTask polls until the task is terminal or timeout passes.
func waitForTask(
	ctx context.Context,
	status func(context.Context, string) (*core.Task, error),
	taskID string,
	timeout, interval time.Duration,
) (*core.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		task, err := status(ctx, taskID)
		if err != nil {
			return nil, fmt.Errorf("failed to poll task %s: %w", taskID, err)
		}
		if task.Status.IsTerminal() {
			return task, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("task %s still %s after %s", taskID, task.Status, timeout)
		case <-ticker.C:
		}
	}
}
