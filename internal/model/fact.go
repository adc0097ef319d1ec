// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MetricCode identifies the quantity a fact observes.
type MetricCode string

// Metric codes.
const (
	MetricHourStd       MetricCode = "HOUR_STD"
	MetricHourOTWeekday MetricCode = "HOUR_OT_WD"
	MetricHourOTWeekend MetricCode = "HOUR_OT_WE"
	MetricHourTotal     MetricCode = "HOUR_TOTAL"
	MetricHourConfirmed MetricCode = "HOUR_CONFIRMED"
	MetricAmountBase    MetricCode = "AMOUNT_BASE"
	MetricAmountAllow   MetricCode = "AMOUNT_ALLOW"
	MetricAmountDeduct  MetricCode = "AMOUNT_DEDUCT"
	MetricAmountTax     MetricCode = "AMOUNT_TAX"
	MetricDaysPresent   MetricCode = "DAYS_PRESENT"
	MetricDaysAbsence   MetricCode = "DAYS_ABSENCE"
	MetricDaysLeave     MetricCode = "DAYS_LEAVE"
)

// MetricCodes lists every known metric code in canonical order.
var MetricCodes = []MetricCode{
	MetricHourStd, MetricHourOTWeekday, MetricHourOTWeekend, MetricHourTotal, MetricHourConfirmed,
	MetricAmountBase, MetricAmountAllow, MetricAmountDeduct, MetricAmountTax,
	MetricDaysPresent, MetricDaysAbsence, MetricDaysLeave,
}

// ParseMetricCode parses a metric code case-insensitively.
func ParseMetricCode(s string) (MetricCode, error) {
	code := MetricCode(strings.ToUpper(strings.TrimSpace(s)))
	if !code.Valid() {
		return "", fmt.Errorf("%w: unknown metric code %q", ErrValidation, s)
	}
	return code, nil
}

// Valid reports whether c is a known metric code.
func (c MetricCode) Valid() bool {
	for _, known := range MetricCodes {
		if c == known {
			return true
		}
	}
	return false
}

// DefaultUnit returns the unit implied by the metric family.
func (c MetricCode) DefaultUnit() Unit {
	switch {
	case strings.HasPrefix(string(c), "HOUR_"):
		return UnitHour
	case strings.HasPrefix(string(c), "DAYS_"):
		return UnitDay
	default:
		return UnitCurrency
	}
}

// Unit is the measurement unit of a fact value.
type Unit string

// Units.
const (
	UnitHour     Unit = "hour"
	UnitCurrency Unit = "currency"
	UnitDay      Unit = "day"
)

// ParseUnit parses a unit case-insensitively.
func ParseUnit(s string) (Unit, error) {
	u := Unit(strings.ToLower(strings.TrimSpace(s)))
	switch u {
	case UnitHour, UnitCurrency, UnitDay:
		return u, nil
	}
	return "", fmt.Errorf("%w: unknown unit %q", ErrValidation, s)
}

// DefaultCurrency is the only currency payroll facts are recorded in.
const DefaultCurrency = "CNY"

// MaxMonthlyHours is the number of hours in a 31-day month.
var MaxMonthlyHours = decimal.NewFromInt(744)

// FactRecord is one observed quantity (hours, currency or days) for one
// employee, one period and one metric. Facts are append-only; several facts
// for the same key are summed at calculation time.
type FactRecord struct {
	MetricValue      decimal.Decimal `json:"metric_value"`
	Confidence       decimal.Decimal `json:"confidence"`
	Tags             Tree            `json:"tags_json"`
	WorkspaceID      string          `json:"ws_id"`
	EmployeeName     string          `json:"employee_name"`
	EmployeeNameNorm string          `json:"employee_name_norm"`
	PeriodMonth      string          `json:"period_month"`
	MetricCode       MetricCode      `json:"metric_code"`
	Unit             Unit            `json:"unit"`
	Currency         string          `json:"currency"`
	MetricLabel      string          `json:"metric_label,omitempty"`
	SourceFile       string          `json:"source_file"`
	SourceSheet      string          `json:"source_sheet,omitempty"`
	SourceCol        string          `json:"source_col,omitempty"`
	SourceSHA256     string          `json:"source_sha256"`
	RawTextHash      string          `json:"raw_text_hash"`
	IngestJobID      string          `json:"ingest_job_id,omitempty"`
	SourceRow        int             `json:"source_row,omitempty"`
}

// FactKey identifies an observation for de-duplication between template and
// heuristic extraction.
type FactKey struct {
	EmployeeNameNorm string
	MetricCode       MetricCode
	MetricLabel      string
}

// Key returns the de-duplication identity of the fact.
func (f *FactRecord) Key() FactKey {
	return FactKey{
		EmployeeNameNorm: f.EmployeeNameNorm,
		MetricCode:       f.MetricCode,
		MetricLabel:      f.MetricLabel,
	}
}

// Validate enforces the domain bounds of a fact.
func (f *FactRecord) Validate() error {
	if strings.TrimSpace(f.EmployeeNameNorm) == "" {
		return fmt.Errorf("%w: fact is missing employee name", ErrValidation)
	}
	if !ValidPeriod(f.PeriodMonth) {
		return fmt.Errorf("%w: %q", ErrInvalidPeriod, f.PeriodMonth)
	}
	if !f.MetricCode.Valid() {
		return fmt.Errorf("%w: unknown metric code %q", ErrValidation, f.MetricCode)
	}
	switch f.Unit {
	case UnitHour:
		if f.MetricValue.IsNegative() || f.MetricValue.GreaterThan(MaxMonthlyHours) {
			return fmt.Errorf("%w: %s=%s for %s", ErrHourOutOfRange, f.MetricCode, f.MetricValue, f.EmployeeNameNorm)
		}
	case UnitCurrency:
		if f.MetricValue.IsNegative() {
			return fmt.Errorf("%w: %s=%s for %s", ErrNegativeCurrency, f.MetricCode, f.MetricValue, f.EmployeeNameNorm)
		}
	case UnitDay:
	default:
		return fmt.Errorf("%w: unknown unit %q", ErrValidation, f.Unit)
	}
	if f.Confidence.IsNegative() || f.Confidence.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: confidence %s outside [0,1]", ErrValidation, f.Confidence)
	}
	return nil
}
