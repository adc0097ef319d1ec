package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/Veraticus/payflow/internal/cli"
	"github.com/Veraticus/payflow/internal/common"
	"github.com/Veraticus/payflow/internal/config"
	"github.com/Veraticus/payflow/internal/export"
	"github.com/Veraticus/payflow/internal/sheets"
	"github.com/Veraticus/payflow/internal/workspace"
	"github.com/spf13/cobra"
)

const formatSheets = "sheets"

func exportCmd() *cobra.Command {
	var period, outDir string
	var formats []string

	cmd := &cobra.Command{
		Use:   "export <workspace>",
		Short: "Export payroll results",
		Long: `Export the stored results of a period.

Formats:
  bank    bank payroll CSV (employee, amount, period)
  tax     tax bureau CSV with every result field
  xlsx    workbook with a summary and a detail sheet
  sheets  Google Sheets (needs sheets.* configuration)`,
		Example: `  payflow export 2025-03 --format bank --format tax
  payflow export 2025-03 --format xlsx --out ~/Desktop
  payflow export 2025-03 --format sheets`,
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
			if period == "" {
				period = wsID
			}
			if outDir == "" {
				outDir = a.files.Path(wsID, workspace.ZoneReports)
			}

			results, err := a.store.ListResults(ctx, wsID, period)
			if err != nil {
				return fmt.Errorf("failed to list results: %w", err)
			}
			if len(results) == 0 {
				return common.NewUserError(fmt.Sprintf("no results for %s; run: payflow calc %s --period %s", period, wsID, period), common.ErrNoResults)
			}
			summary := export.Summarize(wsID, period, results)

			for _, name := range formats {
				if name == formatSheets {
					sheetsConfig, err := config.LoadSheetsConfig()
					if err != nil {
						return common.NewUserError("Google Sheets is not configured; set sheets.* or GOOGLE_SHEETS_* and run: payflow auth sheets", err)
					}
					writer, err := sheets.NewWriter(ctx, *sheetsConfig, slog.Default())
					if err != nil {
						return fmt.Errorf("%w: %w", common.ErrSheetsUnavailable, err)
					}
					if err := writer.Write(ctx, results, summary); err != nil {
						return fmt.Errorf("failed to write to Google Sheets: %w", err)
					}
					cmd.Println(cli.FormatSuccess("Uploaded results to Google Sheets"))
					continue
				}

				f, err := export.ParseFormat(name)
				if err != nil {
					return common.NewUserError(fmt.Sprintf("unknown format %q (bank, tax, xlsx, sheets)", name), err)
				}
				path := filepath.Join(outDir, f.Filename(period))
				if err := export.WriteFile(path, f, results, summary); err != nil {
					return fmt.Errorf("failed to export %s: %w", f, err)
				}
				cmd.Println(cli.FormatSuccess(fmt.Sprintf("Wrote %s", path)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&period, "period", "", "period to export (YYYY-MM, default: workspace month)")
	cmd.Flags().StringSliceVarP(&formats, "format", "f", []string{"bank", "tax", "xlsx"}, "formats to write (bank, tax, xlsx, sheets)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default: the workspace reports folder)")
	return cmd
}
