package main

import (
	"fmt"
	"io"

	"github.com/Veraticus/payflow/internal/cli"
	"github.com/Veraticus/payflow/internal/common"
	"github.com/Veraticus/payflow/internal/config"
	"github.com/Veraticus/payflow/internal/engine"
	"github.com/Veraticus/payflow/internal/export"
	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/workspace"
	"github.com/spf13/cobra"
)

func calcCmd() *cobra.Command {
	var period string
	var employees []string
	var yes, dryRun bool

	cmd := &cobra.Command{
		Use:     "calc <workspace>",
		Aliases: []string{"calculate", "run"},
		Short:   "Calculate payroll for a period",
		Long: `Calculate payroll with rules_v1 for every employee with facts in the
period (default: the workspace month). Stored results for the period are
replaced. Employees without a usable policy are skipped.`,
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

			table, err := config.LoadTaxTable()
			if err != nil {
				return common.NewUserError("could not load the tax table; check tax.table_path", err)
			}
			payroll := engine.NewWithConfig(a.store, engine.Config{Tax: table})

			if dryRun {
				results, err := payroll.Calculate(ctx, wsID, period, employees)
				if err != nil {
					return fmt.Errorf("failed to calculate payroll: %w", err)
				}
				return renderResults(cmd.OutOrStdout(), results, period)
			}

			existing, err := a.store.ListResults(ctx, wsID, period)
			if err != nil {
				return fmt.Errorf("failed to list results: %w", err)
			}
			if len(existing) > 0 && !yes {
				ok, err := cli.Confirm(ctx, cli.NewNonBlockingReader(cmd.InOrStdin()), cmd.OutOrStdout(),
					fmt.Sprintf("Replace %d stored results for %s?", len(existing), period))
				if err != nil {
					return err
				}
				if !ok {
					cmd.Println(cli.FormatInfo("Kept the stored results"))
					return nil
				}
			}

			results, err := payroll.Run(ctx, wsID, period, employees)
			if err != nil {
				return fmt.Errorf("failed to calculate payroll: %w", err)
			}
			if _, err := a.files.WriteJSON(wsID, workspace.ZoneResults, fmt.Sprintf("payroll_%s.json", period), results); err != nil {
				cmd.PrintErrln(cli.FormatWarning("Could not write results snapshot: " + err.Error()))
			}
			return renderResults(cmd.OutOrStdout(), results, period)
		},
	}

	cmd.Flags().StringVar(&period, "period", "", "period to calculate (YYYY-MM, default: workspace month)")
	cmd.Flags().StringSliceVar(&employees, "employee", nil, "restrict to these employees (repeatable)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "replace stored results without asking")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "calculate without storing results")
	return cmd
}

func resultsCmd() *cobra.Command {
	var period string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "results <workspace>",
		Short: "Show stored payroll results",
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
			results, err := a.store.ListResults(ctx, args[0], period)
			if err != nil {
				return fmt.Errorf("failed to list results: %w", err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), results)
			}
			return renderResults(cmd.OutOrStdout(), results, period)
		},
	}

	cmd.Flags().StringVar(&period, "period", "", "only this period (YYYY-MM)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func renderResults(w io.Writer, results []model.PayrollResult, period string) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, cli.FormatInfo("No payroll results. Check that facts and policies exist for the period."))
		return err
	}

	table := cli.NewTable("EMPLOYEE", "PERIOD", "BASE", "OT", "ALLOW", "DEDUCT", "GROSS", "SS", "TAX", "NET")
	for _, r := range results {
		table.Row(r.EmployeeNameNorm, r.PeriodMonth,
			r.BasePay.StringFixed(2), r.OTPay.StringFixed(2),
			r.AllowancesSum.StringFixed(2), r.DeductionsSum.StringFixed(2),
			r.GrossPay.StringFixed(2), r.SocialSecurityPersonal.StringFixed(2),
			r.Tax.StringFixed(2), cli.BoldStyle.Render(r.NetPay.StringFixed(2)))
	}
	if err := table.Render(w); err != nil {
		return err
	}

	s := export.Summarize("", period, results)
	_, err := fmt.Fprintln(w, cli.FormatSuccess(fmt.Sprintf("%d employees · gross %s · tax %s · net %s",
		s.Employees, s.Gross.StringFixed(2), s.Tax.StringFixed(2), s.Net.StringFixed(2))))
	return err
}
