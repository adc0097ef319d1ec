package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/payflow/internal/cli"
	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/names"
	"github.com/Veraticus/payflow/internal/workspace"
	"github.com/spf13/cobra"
)

// factFilter selects facts for display.
type factFilter struct {
	employee      string
	period        string
	metric        string
	lowConfidence bool
}

func (f factFilter) apply(facts []model.FactRecord) []model.FactRecord {
	employee := names.Normalize(f.employee)
	metric := strings.ToUpper(strings.TrimSpace(f.metric))

	out := make([]model.FactRecord, 0, len(facts))
	for _, fact := range facts {
		if employee != "" && fact.EmployeeNameNorm != employee {
			continue
		}
		if f.period != "" && fact.PeriodMonth != f.period {
			continue
		}
		if metric != "" && string(fact.MetricCode) != metric {
			continue
		}
		if f.lowConfidence && !fact.Confidence.LessThan(workspace.LowConfidence) {
			continue
		}
		out = append(out, fact)
	}
	return out
}

func factsCmd() *cobra.Command {
	var filter factFilter
	var match string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "facts <workspace>",
		Short: "List extracted facts",
		Args:  cobra.ExactArgs(1),
		Example: `  payflow facts 2025-03 --employee 张三
  payflow facts 2025-03 --low-confidence
  payflow facts 2025-03 --match "张 三"`,
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
			facts, err := a.store.ListFacts(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to list facts: %w", err)
			}

			if match != "" {
				return renderMatches(cmd.OutOrStdout(), match, facts)
			}

			facts = filter.apply(facts)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), facts)
			}
			if len(facts) == 0 {
				cmd.Println(cli.FormatInfo("No facts match"))
				return nil
			}
			return renderFacts(cmd.OutOrStdout(), facts)
		},
	}

	cmd.Flags().StringVar(&filter.employee, "employee", "", "only this employee")
	cmd.Flags().StringVar(&filter.period, "period", "", "only this period (YYYY-MM)")
	cmd.Flags().StringVar(&filter.metric, "metric", "", "only this metric code")
	cmd.Flags().BoolVar(&filter.lowConfidence, "low-confidence", false, "only facts that need review")
	cmd.Flags().StringVar(&match, "match", "", "suggest the closest employee names to this one")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func renderFacts(w io.Writer, facts []model.FactRecord) error {
	table := cli.NewTable("EMPLOYEE", "PERIOD", "METRIC", "VALUE", "UNIT", "CONF", "LABEL", "SOURCE")
	for _, f := range facts {
		source := f.SourceFile
		if f.SourceSheet != "" {
			source += ":" + f.SourceSheet
		}
		if f.SourceRow > 0 {
			source += fmt.Sprintf("#%d", f.SourceRow)
		}
		conf := f.Confidence.StringFixed(2)
		if f.Confidence.LessThan(workspace.LowConfidence) {
			conf = cli.WarningStyle.Render(conf)
		}
		table.Row(f.EmployeeNameNorm, f.PeriodMonth, string(f.MetricCode), f.MetricValue.String(),
			string(f.Unit), conf, f.MetricLabel, source)
	}
	return table.Render(w)
}

// renderMatches ranks the workspace's employee names by similarity to name.
func renderMatches(w io.Writer, name string, facts []model.FactRecord) error {
	seen := make(map[string]bool)
	var employees []string
	for _, f := range facts {
		if !seen[f.EmployeeNameNorm] {
			seen[f.EmployeeNameNorm] = true
			employees = append(employees, f.EmployeeNameNorm)
		}
	}

	table := cli.NewTable("EMPLOYEE", "SIMILARITY")
	for _, m := range names.Rank(name, employees, 5) {
		table.Row(m.Name, fmt.Sprintf("%.2f", m.Score))
	}
	return table.Render(w)
}

func policyCmd() *cobra.Command {
	var employee, period string
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "policy <workspace>",
		Aliases: []string{"policies"},
		Short:   "Show merged policy snapshots",
		Long: `Show the policy in effect per employee and period: every stored snapshot
for the same employee and period folded together in arrival order.`,
		Args: cobra.ExactArgs(1),
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
			merged, err := a.workspaces.Policies(ctx, args[0])
			if err != nil {
				return err
			}

			norm := names.Normalize(employee)
			filtered := merged[:0]
			for _, p := range merged {
				if norm != "" && p.EmployeeNameNorm != norm {
					continue
				}
				if period != "" && p.PeriodMonth != period {
					continue
				}
				filtered = append(filtered, p)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), filtered)
			}
			if len(filtered) == 0 {
				cmd.Println(cli.FormatInfo("No policies match"))
				return nil
			}
			return renderPolicies(cmd.OutOrStdout(), filtered)
		},
	}

	cmd.Flags().StringVar(&employee, "employee", "", "only this employee")
	cmd.Flags().StringVar(&period, "period", "", "only this period (YYYY-MM)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func renderPolicies(w io.Writer, policies []model.PolicySnapshot) error {
	table := cli.NewTable("EMPLOYEE", "PERIOD", "MODE", "BASE", "RATE", "OT WD", "OT WE", "SS RATIO", "HASH")
	for _, p := range policies {
		hash := p.SnapshotHash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		table.Row(p.EmployeeNameNorm, p.PeriodMonth, string(p.Mode),
			nullText(p.BaseAmount.Valid, p.BaseAmount.Decimal.String()),
			nullText(p.BaseRate.Valid, p.BaseRate.Decimal.String()),
			otText(p.OTWeekdayRate.Valid, p.OTWeekdayRate.Decimal.String(), p.OTWeekdayMultiplier.Valid, p.OTWeekdayMultiplier.Decimal.String()),
			otText(p.OTWeekendRate.Valid, p.OTWeekendRate.Decimal.String(), p.OTWeekendMultiplier.Valid, p.OTWeekendMultiplier.Decimal.String()),
			p.SocialSecurityEmployeeRatio().String(),
			hash)
	}
	return table.Render(w)
}

func nullText(valid bool, text string) string {
	if !valid {
		return "-"
	}
	return text
}

func otText(rateValid bool, rate string, multValid bool, mult string) string {
	switch {
	case rateValid:
		return rate
	case multValid:
		return "×" + mult
	default:
		return "-"
	}
}
