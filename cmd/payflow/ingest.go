package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Veraticus/payflow/internal/cli"
	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/pipeline"
	"github.com/spf13/cobra"
)

func ingestCmd() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "ingest <workspace> <file|dir>...",
		Short: "Ingest payroll source files into a workspace",
		Long: `Copy each file into the workspace, detect its template and extract
facts and policy snapshots. Directories contribute their top-level files.
Every file becomes a job; a failing file never stops the others.`,
		Example: `  payflow ingest 2025-03 ~/Downloads/考勤表.xlsx ~/Downloads/薪资口径.xlsx
  payflow ingest 2025-03 ./uploads/`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			wsID := args[0]
			if err := a.requireWorkspace(ctx, wsID); err != nil {
				return err
			}
			paths, err := collectPaths(args[1:])
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				cmd.Println(cli.FormatWarning("No files to ingest"))
				return nil
			}
			if concurrency > 0 {
				a.settings.Concurrency = concurrency
			}

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
			ctx, cancel := handler.HandleInterrupts(ctx, "Finished jobs are kept. Re-run ingest for the remaining files.")
			defer cancel()

			progress := cli.NewProgress(cmd.ErrOrStderr(), len(paths), "Ingesting files...")
			statuses, err := a.worker().IngestBatch(ctx, wsID, paths, func(s pipeline.FileStatus) {
				progress.Done(filepath.Base(s.Path), s.Err)
			})
			progress.Finish()
			if err != nil {
				return fmt.Errorf("ingestion stopped: %w", err)
			}

			table := cli.NewTable("FILE", "JOB", "STATUS", "SCHEMA", "FACTS", "POLICIES")
			for _, s := range statuses {
				if s.Job == nil {
					table.Row(filepath.Base(s.Path), "-", cli.FormatStatus(string(model.JobFailed)), "", "", "")
					continue
				}
				table.Row(s.Job.Filename, s.Job.ID, cli.FormatStatus(string(s.Job.Status)), s.Job.Schema,
					fmt.Sprint(s.Job.FactsAdded), fmt.Sprint(s.Job.PoliciesAdded))
			}
			if err := table.Render(cmd.OutOrStdout()); err != nil {
				return err
			}

			completed, failed := pipeline.Summary(statuses)
			if failed > 0 {
				cmd.Println(cli.FormatWarning(fmt.Sprintf("%d of %d files failed", failed, completed+failed)))
			} else {
				cmd.Println(cli.FormatSuccess(fmt.Sprintf("Ingested %d files", completed)))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "files parsed in parallel (default pipeline.concurrency)")
	return cmd
}

func watchCmd() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch <workspace>",
		Short: "Ingest files dropped into the workspace inbox",
		Long: `Watch the inbox folder of a workspace and ingest every file written to it
once it has been quiet for the debounce interval. Stop with Ctrl+C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			wsID := args[0]
			if err := a.requireWorkspace(ctx, wsID); err != nil {
				return err
			}
			if debounce <= 0 {
				debounce = a.settings.WatchDebounce
			}

			watcher, err := pipeline.NewWatcher(a.worker(), wsID, debounce, func(job *model.Job, err error) {
				switch {
				case err != nil:
					cmd.Println(cli.FormatError(err.Error()))
				case job.Status == model.JobFailed:
					cmd.Println(cli.FormatError(fmt.Sprintf("%s %s: %s", job.ID, job.Filename, job.Error)))
				default:
					cmd.Println(cli.FormatSuccess(fmt.Sprintf("%s %s: %s, %d facts, %d policies",
						job.ID, job.Filename, job.Schema, job.FactsAdded, job.PoliciesAdded)))
				}
			})
			if err != nil {
				return fmt.Errorf("failed to start watcher: %w", err)
			}

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
			ctx, cancel := handler.HandleInterrupts(ctx, "Stopped watching "+watcher.Dir())
			defer cancel()

			cmd.Println(cli.FormatInfo("Watching " + watcher.Dir()))
			slog.Debug("Watcher started", "workspace", wsID, "debounce", debounce)
			return watcher.Run(ctx)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 0, "quiet period before a file is ingested (default pipeline.watch_debounce)")
	return cmd
}
