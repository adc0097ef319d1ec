// Package engine turns a workspace's facts and merged policy snapshots into
// payroll results.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/names"
	"github.com/Veraticus/payflow/internal/policy"
	"github.com/shopspring/decimal"
)

// ErrMissingPeriod is returned when a calculation is requested without a
// period.
var ErrMissingPeriod = errors.New("period is required")

var one = decimal.NewFromInt(1)

// PayrollEngine calculates payroll results with a fixed rule set.
type PayrollEngine struct {
	store Store
	tax   TaxTable
}

// Config holds configuration options for the payroll engine.
type Config struct {
	Tax TaxTable
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{Tax: DefaultTaxTable()}
}

// New creates a payroll engine with the built-in tax table.
func New(store Store) *PayrollEngine {
	return NewWithConfig(store, DefaultConfig())
}

// NewWithConfig creates a payroll engine with a custom configuration.
func NewWithConfig(store Store, config Config) *PayrollEngine {
	return &PayrollEngine{
		store: store,
		tax:   config.Tax,
	}
}

// Calculate computes results for every employee with facts in period. A
// non-empty employees list restricts the run to those names. Employees
// without a usable policy are skipped. Results are ordered by employee.
func (e *PayrollEngine) Calculate(ctx context.Context, workspaceID, period string, employees []string) ([]model.PayrollResult, error) {
	period = strings.TrimSpace(period)
	if period == "" {
		return nil, ErrMissingPeriod
	}

	facts, err := e.store.ListFacts(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list facts: %w", err)
	}
	snapshots, err := e.store.ListPolicies(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}

	var selected map[string]bool
	if len(employees) > 0 {
		selected = make(map[string]bool, len(employees))
		for _, name := range employees {
			selected[names.Normalize(name)] = true
		}
	}

	grouped := make(map[string][]model.FactRecord)
	for _, f := range facts {
		if f.PeriodMonth != period {
			continue
		}
		key := names.Normalize(f.EmployeeNameNorm)
		if selected != nil && !selected[key] {
			continue
		}
		grouped[key] = append(grouped[key], f)
	}

	keys := make([]string, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	policies := policy.ByEmployee(snapshots, period)
	results := make([]model.PayrollResult, 0, len(keys))
	skipped := 0
	for _, key := range keys {
		p, ok := policies[key]
		if !ok {
			slog.Debug("Skipping employee without policy", "employee", key, "period", period)
			skipped++
			continue
		}
		if p.Mode == model.ModeHourly && !p.BaseRate.Valid {
			slog.Debug("Skipping hourly employee without base rate", "employee", key, "period", period)
			skipped++
			continue
		}
		results = append(results, e.calculate(grouped[key], p, period))
	}

	slog.Info("Calculated payroll",
		"workspace", workspaceID,
		"period", period,
		"results", len(results),
		"skipped", skipped)
	return results, nil
}

// Run calculates period and replaces the stored results for it.
func (e *PayrollEngine) Run(ctx context.Context, workspaceID, period string, employees []string) ([]model.PayrollResult, error) {
	results, err := e.Calculate(ctx, workspaceID, period, employees)
	if err != nil {
		return nil, err
	}
	if err := e.store.SaveResults(ctx, workspaceID, period, results); err != nil {
		return nil, fmt.Errorf("failed to save results: %w", err)
	}
	return results, nil
}

func (e *PayrollEngine) calculate(facts []model.FactRecord, p model.PolicySnapshot, period string) model.PayrollResult {
	totals := Aggregate(facts)

	var base, ot decimal.Decimal
	switch p.Mode {
	case model.ModeHourly:
		rate := orZero(p.BaseRate)
		base = totals.PayableHours().Mul(rate)
		weekday := orOne(p.OTWeekdayMultiplier).Sub(one)
		weekend := orOne(p.OTWeekendMultiplier).Sub(one)
		ot = totals.HourOTWeekday.Mul(rate).Mul(weekday).
			Add(totals.HourOTWeekend.Mul(rate).Mul(weekend))
	default:
		base = totals.Base
		if p.BaseAmount.Valid && !p.BaseAmount.Decimal.IsZero() {
			base = p.BaseAmount.Decimal
		}
		ot = totals.HourOTWeekday.Mul(orZero(p.OTWeekdayRate)).
			Add(totals.HourOTWeekend.Mul(orZero(p.OTWeekendRate)))
	}

	gross := base.Add(ot).Add(totals.Allowances)
	socialSecurity := gross.Mul(p.SocialSecurityEmployeeRatio()).Round(2)
	tax := e.tax.Tax(gross, socialSecurity).Round(2)
	net := gross.Sub(totals.Deductions).Sub(socialSecurity).Sub(tax)

	return model.PayrollResult{
		EmployeeNameNorm:       facts[0].EmployeeNameNorm,
		PeriodMonth:            period,
		GrossPay:               gross.Round(2),
		NetPay:                 net.Round(2),
		BasePay:                base.Round(2),
		OTPay:                  ot.Round(2),
		AllowancesSum:          totals.Allowances.Round(2),
		DeductionsSum:          totals.Deductions.Round(2),
		SocialSecurityPersonal: socialSecurity,
		Tax:                    tax,
		SnapshotHash:           p.SnapshotHash,
		RuleVersion:            model.RuleVersion,
		SourceFiles:            sourceFiles(facts),
	}
}

func sourceFiles(facts []model.FactRecord) []string {
	seen := make(map[string]bool)
	var files []string
	for _, f := range facts {
		if f.SourceFile == "" || seen[f.SourceFile] {
			continue
		}
		seen[f.SourceFile] = true
		files = append(files, f.SourceFile)
	}
	sort.Strings(files)
	return files
}

func orZero(v decimal.NullDecimal) decimal.Decimal {
	if !v.Valid {
		return decimal.Zero
	}
	return v.Decimal
}

// orOne treats a missing or zero multiplier as 1, meaning no premium.
func orOne(v decimal.NullDecimal) decimal.Decimal {
	if !v.Valid || v.Decimal.IsZero() {
		return one
	}
	return v.Decimal
}
