package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/Veraticus/payflow/internal/cli"
	"github.com/Veraticus/payflow/internal/workspace"
	"github.com/spf13/cobra"
)

func workspaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"ws"},
		Short:   "Manage monthly payroll workspaces",
		Long: `A workspace collects every upload, record and result of one payroll month.
Its id is the month itself (YYYY-MM).`,
		Example: `  # Start the March payroll
  payflow workspace create 2025-03

  # See what is still missing
  payflow workspace progress 2025-03`,
	}

	cmd.AddCommand(createWorkspaceCmd())
	cmd.AddCommand(listWorkspacesCmd())
	cmd.AddCommand(showWorkspaceCmd())
	cmd.AddCommand(progressWorkspaceCmd())

	return cmd
}

func createWorkspaceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <month>",
		Short: "Create the workspace for a month",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			ws, err := a.workspaces.Create(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to create workspace: %w", err)
			}

			cmd.Println(cli.FormatSuccess(fmt.Sprintf("Workspace %s ready", ws.ID)))
			cmd.Println(cli.SubtleStyle.Render("Inbox: " + a.files.Path(ws.ID, workspace.ZoneInbox)))
			return nil
		},
	}
}

func listWorkspacesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workspaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			summaries, err := a.workspaces.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list workspaces: %w", err)
			}
			if len(summaries) == 0 {
				cmd.Println(cli.FormatInfo("No workspaces yet. Create one with: payflow workspace create YYYY-MM"))
				return nil
			}

			table := cli.NewTable("WORKSPACE", "JOBS", "FACTS", "POLICIES", "RESULTS")
			for _, s := range summaries {
				table.Row(s.ID, strconv.Itoa(s.Jobs), strconv.Itoa(s.Facts), strconv.Itoa(s.Policies), strconv.Itoa(s.Results))
			}
			return table.Render(cmd.OutOrStdout())
		},
	}
}

func showWorkspaceCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <workspace>",
		Short: "Show jobs, documents and requirements of a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.requireWorkspace(ctx, args[0]); err != nil {
				return err
			}
			overview, err := a.workspaces.Overview(ctx, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), overview)
			}
			return renderOverview(cmd.OutOrStdout(), overview)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func renderOverview(w io.Writer, o *workspace.Overview) error {
	if _, err := fmt.Fprintln(w, cli.FormatTitle("Workspace "+o.Workspace.ID)); err != nil {
		return err
	}

	jobs := cli.NewTable("JOB", "FILE", "STATUS", "SCHEMA", "FACTS", "POLICIES", "ERROR")
	for _, j := range o.Jobs {
		jobs.Row(j.ID, j.Filename, cli.FormatStatus(string(j.Status)), j.Schema,
			strconv.Itoa(j.FactsAdded), strconv.Itoa(j.PoliciesAdded), j.Error)
	}
	if jobs.Len() == 0 {
		if _, err := fmt.Fprintln(w, cli.SubtleStyle.Render("No uploads yet.")); err != nil {
			return err
		}
	} else if err := jobs.Render(w); err != nil {
		return err
	}

	if len(o.Documents) > 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		docs := cli.NewTable("DOCUMENT", "FILE", "SCHEMA", "OCR", "JOB")
		for _, d := range o.Documents {
			docs.Row(d.ID, d.SourceFile, d.Schema, strconv.FormatBool(d.RequiresOCR), d.IngestJobID)
		}
		if err := docs.Render(w); err != nil {
			return err
		}
	}

	if len(o.Requirements) > 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		ids := make([]string, 0, len(o.Requirements))
		for id := range o.Requirements {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		reqs := cli.NewTable("REQUIREMENT", "STATUS", "FILE", "SCHEMA")
		for _, id := range ids {
			r := o.Requirements[id]
			reqs.Row(id, cli.FormatStatus(r.Status), r.Filename, r.Schema)
		}
		return reqs.Render(w)
	}
	return nil
}

func progressWorkspaceCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "progress <workspace>",
		Short: "Show the guided payroll workflow for a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.requireWorkspace(ctx, args[0]); err != nil {
				return err
			}
			progress, err := a.workspaces.Progress(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to compute progress: %w", err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), progress)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderProgress(progress))
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func renderProgress(p *workspace.Progress) string {
	var body string
	for i, step := range p.Steps {
		body += fmt.Sprintf("%d. %s  %s\n", i+1, cli.FormatStatus(step.Status), step.Label)
		for _, req := range step.Requirements {
			line := fmt.Sprintf("     %s %s", cli.FormatStatus(req.Status), req.Label)
			if req.Optional {
				line += cli.SubtleStyle.Render(" (optional)")
			}
			if req.Filename != "" {
				line += cli.SubtleStyle.Render(" ← " + req.Filename)
			}
			body += line + "\n"
		}
	}

	s := p.Summary
	body += fmt.Sprintf("\nFacts %d (low confidence %d) · Policies %d · Results %d · Jobs %d (failed %d)",
		s.Facts, s.LowConfidence, s.Policies, s.Results, s.Jobs.Total, s.Jobs.Failed)
	body += fmt.Sprintf("\nOverall %.0f%%", p.Overall*100)
	if p.NextStep != "" {
		body += cli.InfoStyle.Render("  next: " + p.NextStep)
	}
	return cli.RenderBox("Workspace "+p.WorkspaceID, body)
}
