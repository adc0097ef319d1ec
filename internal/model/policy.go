package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PayMode selects how facts convert into pay.
type PayMode string

// Pay modes.
const (
	ModeSalaried PayMode = "SALARIED"
	ModeHourly   PayMode = "HOURLY"
)

// ParseMode parses a pay mode case-insensitively. Besides the canonical
// names it accepts the labels payroll sheets commonly use.
func ParseMode(s string) (PayMode, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch v {
	case "SALARIED", "SALARY", "MONTHLY", "月薪", "固定", "固定工资", "计月":
		return ModeSalaried, nil
	case "HOURLY", "HOUR", "时薪", "计时", "小时工":
		return ModeHourly, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// PolicySnapshot is the payroll configuration in effect for one employee in
// one period. Snapshots are stored as independent partial records and merged
// lazily when read for calculation.
type PolicySnapshot struct {
	BaseAmount          decimal.NullDecimal `json:"base_amount"`
	BaseRate            decimal.NullDecimal `json:"base_rate"`
	OTWeekdayMultiplier decimal.NullDecimal `json:"ot_weekday_multiplier"`
	OTWeekendMultiplier decimal.NullDecimal `json:"ot_weekend_multiplier"`
	OTWeekdayRate       decimal.NullDecimal `json:"ot_weekday_rate"`
	OTWeekendRate       decimal.NullDecimal `json:"ot_weekend_rate"`
	Allowances          Tree                `json:"allowances_json"`
	Deductions          Tree                `json:"deductions_json"`
	Tax                 Tree                `json:"tax_json"`
	SocialSecurity      Tree                `json:"social_security_json"`
	RawSnapshot         Tree                `json:"raw_snapshot"`
	WorkspaceID         string              `json:"ws_id"`
	EmployeeNameNorm    string              `json:"employee_name_norm"`
	PeriodMonth         string              `json:"period_month"`
	Mode                PayMode             `json:"mode"`
	ValidFrom           string              `json:"valid_from,omitempty"`
	ValidTo             string              `json:"valid_to,omitempty"`
	SourceFile          string              `json:"source_file,omitempty"`
	SourceSheet         string              `json:"source_sheet,omitempty"`
	SourceRowRange      string              `json:"source_row_range,omitempty"`
	SnapshotHash        string              `json:"snapshot_hash,omitempty"`
}

// PolicyKey groups snapshots that merge into one.
type PolicyKey struct {
	EmployeeNameNorm string
	PeriodMonth      string
}

// Key returns the merge key of the snapshot.
func (p *PolicySnapshot) Key() PolicyKey {
	return PolicyKey{EmployeeNameNorm: p.EmployeeNameNorm, PeriodMonth: p.PeriodMonth}
}

// SocialSecurityEmployeeRatio returns social_security_json.employee, or zero.
func (p *PolicySnapshot) SocialSecurityEmployeeRatio() decimal.Decimal {
	v, ok := p.SocialSecurity.Get("employee")
	if !ok {
		return decimal.Zero
	}
	d, ok := v.Decimal()
	if !ok {
		return decimal.Zero
	}
	return d
}

// ValidateShape checks what every stored snapshot needs, partial or not.
func (p *PolicySnapshot) ValidateShape() error {
	if strings.TrimSpace(p.EmployeeNameNorm) == "" {
		return fmt.Errorf("%w: policy is missing employee name", ErrValidation)
	}
	if !ValidPeriod(p.PeriodMonth) {
		return fmt.Errorf("%w: %q", ErrInvalidPeriod, p.PeriodMonth)
	}
	if p.Mode != ModeSalaried && p.Mode != ModeHourly {
		return fmt.Errorf("%w: %q", ErrInvalidMode, p.Mode)
	}
	for name, v := range map[string]decimal.NullDecimal{
		"base_amount":           p.BaseAmount,
		"base_rate":             p.BaseRate,
		"ot_weekday_multiplier": p.OTWeekdayMultiplier,
		"ot_weekend_multiplier": p.OTWeekendMultiplier,
		"ot_weekday_rate":       p.OTWeekdayRate,
		"ot_weekend_rate":       p.OTWeekendRate,
	} {
		if v.Valid && v.Decimal.IsNegative() {
			return fmt.Errorf("%w: %s=%s", ErrNegativeCurrency, name, v.Decimal)
		}
	}
	return nil
}

// Validate checks a complete snapshot: the shape plus the field that defines
// its mode.
func (p *PolicySnapshot) Validate() error {
	if err := p.ValidateShape(); err != nil {
		return err
	}
	switch p.Mode {
	case ModeSalaried:
		if !p.BaseAmount.Valid {
			return fmt.Errorf("%w: %s %s", ErrMissingBaseAmount, p.EmployeeNameNorm, p.PeriodMonth)
		}
	case ModeHourly:
		if !p.BaseRate.Valid {
			return fmt.Errorf("%w: %s %s", ErrMissingBaseRate, p.EmployeeNameNorm, p.PeriodMonth)
		}
	}
	return nil
}

// ComputeHash fingerprints the snapshot's source row, or the snapshot's own
// fields when no source row was captured.
func (p *PolicySnapshot) ComputeHash() string {
	var payload []byte
	if !p.RawSnapshot.IsEmpty() {
		payload, _ = p.RawSnapshot.MarshalJSON()
	} else {
		payload = []byte(fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s|%s|%s",
			p.EmployeeNameNorm, p.PeriodMonth, p.Mode,
			nullText(p.BaseAmount), nullText(p.BaseRate),
			nullText(p.OTWeekdayRate), nullText(p.OTWeekendRate),
			p.Allowances.Text(), p.SocialSecurity.Text()))
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func nullText(v decimal.NullDecimal) string {
	if !v.Valid {
		return ""
	}
	return v.Decimal.String()
}

// NewNullDecimal wraps d as a valid NullDecimal.
func NewNullDecimal(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
