package testutil

import (
	"github.com/Veraticus/payflow/internal/model"
	"github.com/shopspring/decimal"
)

// Fact builds a valid fact with a confidence of 1.
func Fact(workspaceID, employee, period string, code model.MetricCode, value string) model.FactRecord {
	return model.FactRecord{
		WorkspaceID:      workspaceID,
		EmployeeName:     employee,
		EmployeeNameNorm: employee,
		PeriodMonth:      period,
		MetricCode:       code,
		MetricValue:      decimal.RequireFromString(value),
		Unit:             code.DefaultUnit(),
		Currency:         model.DefaultCurrency,
		Confidence:       decimal.NewFromInt(1),
		SourceFile:       "fixture.csv",
	}
}

// Salaried builds a salaried snapshot with a base amount.
func Salaried(workspaceID, employee, period, base string) model.PolicySnapshot {
	return model.PolicySnapshot{
		WorkspaceID:      workspaceID,
		EmployeeNameNorm: employee,
		PeriodMonth:      period,
		Mode:             model.ModeSalaried,
		BaseAmount:       Decimal(base),
	}
}

// Hourly builds an hourly snapshot with a base rate.
func Hourly(workspaceID, employee, period, rate string) model.PolicySnapshot {
	return model.PolicySnapshot{
		WorkspaceID:      workspaceID,
		EmployeeNameNorm: employee,
		PeriodMonth:      period,
		Mode:             model.ModeHourly,
		BaseRate:         Decimal(rate),
	}
}

// Decimal parses s into a valid NullDecimal. It panics on malformed input.
func Decimal(s string) decimal.NullDecimal {
	return model.NewNullDecimal(decimal.RequireFromString(s))
}

// Tree parses JSON text into a Tree. It panics on malformed input.
func Tree(text string) model.Tree {
	t, err := model.ParseTree(text)
	if err != nil {
		panic(err)
	}
	return t
}
