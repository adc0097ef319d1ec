package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RuleVersion tags results with the rule set that produced them.
const RuleVersion = "rules_v1"

// PayrollResult is one employee's payroll outcome for one period. RunID and
// CalculatedAt are assigned when the result is stored.
type PayrollResult struct {
	CalculatedAt           time.Time       `json:"calculated_at,omitempty"`
	GrossPay               decimal.Decimal `json:"gross_pay"`
	NetPay                 decimal.Decimal `json:"net_pay"`
	BasePay                decimal.Decimal `json:"base_pay"`
	OTPay                  decimal.Decimal `json:"ot_pay"`
	AllowancesSum          decimal.Decimal `json:"allowances_sum"`
	DeductionsSum          decimal.Decimal `json:"deductions_sum"`
	SocialSecurityPersonal decimal.Decimal `json:"social_security_personal"`
	Tax                    decimal.Decimal `json:"tax"`
	EmployeeNameNorm       string          `json:"employee_name_norm"`
	PeriodMonth            string          `json:"period_month"`
	SnapshotHash           string          `json:"snapshot_hash,omitempty"`
	RuleVersion            string          `json:"rule_version"`
	RunID                  string          `json:"run_id,omitempty"`
	SourceFiles            []string        `json:"source_files"`
}
