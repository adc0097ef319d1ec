package main

import (
	"fmt"
	"slices"

	"github.com/Veraticus/payflow/internal/cli"
	"github.com/Veraticus/payflow/internal/common"
	"github.com/Veraticus/payflow/internal/workspace"
	"github.com/spf13/cobra"
)

var checkpointStatuses = []string{workspace.StatusCompleted, workspace.StatusInProgress, workspace.StatusPending}

func checkpointCmd() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "checkpoint <workspace> <step> [status]",
		Short: "Record a review checkpoint",
		Long: `Record the reviewer's sign-off on a workflow step. The review_data step
must be completed before payroll is shown as ready to run.`,
		Example: `  # Sign off the data review
  payflow checkpoint 2025-03 review_data completed

  # Reopen it
  payflow checkpoint 2025-03 review_data --clear`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			wsID, step := args[0], args[1]

			status := workspace.StatusCompleted
			if len(args) == 3 {
				status = args[2]
			}
			if reset {
				status = ""
			} else if !slices.Contains(checkpointStatuses, status) {
				return common.NewUserError(fmt.Sprintf("unknown status %q (completed, in_progress, pending)", status), common.ErrInvalidConfig)
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.requireWorkspace(ctx, wsID); err != nil {
				return err
			}
			if err := a.workspaces.UpdateCheckpoint(ctx, wsID, step, status); err != nil {
				return fmt.Errorf("failed to update checkpoint: %w", err)
			}

			if reset {
				cmd.Println(cli.FormatInfo(fmt.Sprintf("Cleared checkpoint %s", step)))
			} else {
				cmd.Println(cli.FormatSuccess(fmt.Sprintf("Checkpoint %s: %s", step, status)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "clear", false, "remove the checkpoint")
	return cmd
}
