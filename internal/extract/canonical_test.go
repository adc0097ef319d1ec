package extract

import (
	"testing"

	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalFacts(t *testing.T) {
	path := testutil.WriteCSV(t, t.TempDir(), "facts.csv", [][]string{
		{"employee_name", "period_month", "metric_code", "metric_value", "unit", "tags_json"},
		{"张三", "2025-01", "HOUR_TOTAL", "160", "hour", ""},
		{"张三", "2025-01", "amount_base", "10000", "", `{"source": "hr"}`},
		{" 张 三 ", "", "AMOUNT_ALLOW", "500", "currency", ""},
	})

	out, err := Canonical(path, Options{WorkspaceID: "2025-01"})
	require.NoError(t, err)
	require.Len(t, out.Facts, 3)
	assert.Empty(t, out.Policies)

	first := out.Facts[0]
	assert.Equal(t, "张三", first.EmployeeNameNorm)
	assert.Equal(t, model.MetricHourTotal, first.MetricCode)
	assert.Equal(t, "160", first.MetricValue.String())
	assert.Equal(t, model.UnitHour, first.Unit)
	assert.Equal(t, "1", first.Confidence.String())
	assert.Equal(t, 2, first.SourceRow)
	assert.Equal(t, "facts", first.SourceSheet)

	second := out.Facts[1]
	assert.Equal(t, model.MetricAmountBase, second.MetricCode)
	assert.Equal(t, model.UnitCurrency, second.Unit)
	assert.JSONEq(t, `{"source":"hr"}`, second.Tags.Text())

	third := out.Facts[2]
	assert.Equal(t, "张三", third.EmployeeNameNorm)
	assert.Equal(t, "2025-01", third.PeriodMonth)
}

func TestCanonicalPoliciesCaseInsensitive(t *testing.T) {
	path := testutil.WriteCSV(t, t.TempDir(), "policy_case.csv", [][]string{
		{"Employee_Name_Norm", "Period_Month", "Mode", "Base_Amount", "Ot_Weekday_Rate", "Social_Security_Json"},
		{"王五", "2025-05", "salaried", "12500", "45", "{'employee': 0.08}"},
	})

	out, err := Canonical(path, Options{WorkspaceID: "2025-05"})
	require.NoError(t, err)
	require.Len(t, out.Policies, 1)

	p := out.Policies[0]
	assert.Equal(t, "王五", p.EmployeeNameNorm)
	assert.Equal(t, model.ModeSalaried, p.Mode)
	assert.Equal(t, "12500", p.BaseAmount.Decimal.String())
	assert.Equal(t, "45", p.OTWeekdayRate.Decimal.String())
	assert.False(t, p.OTWeekendRate.Valid)
	assert.JSONEq(t, `{"employee":0.08}`, p.SocialSecurity.Text())
	assert.NotEmpty(t, p.SnapshotHash)
}

func TestCanonicalMissingColumn(t *testing.T) {
	path := testutil.WriteCSV(t, t.TempDir(), "other.csv", [][]string{
		{"employee", "hours"},
		{"张三", "160"},
	})

	_, err := Canonical(path, Options{WorkspaceID: "2025-01"})
	require.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "metric_code or mode")
}

func TestCanonicalRejectsBadRows(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
	}{
		{"unknown metric", [][]string{{"employee_name", "metric_code", "metric_value"}, {"张三", "HOUR_XX", "1"}}},
		{"missing value", [][]string{{"employee_name", "metric_code", "metric_value"}, {"张三", "HOUR_STD", "n/a"}}},
		{"missing employee", [][]string{{"employee_name", "metric_code", "metric_value"}, {"", "HOUR_STD", "8"}}},
		{"bad mode", [][]string{{"employee_name_norm", "mode"}, {"张三", "WEEKLY"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteCSV(t, t.TempDir(), "bad.csv", tt.rows)
			_, err := Canonical(path, Options{WorkspaceID: "2025-01"})
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}
}

func TestCanonicalJSON(t *testing.T) {
	payload := []byte(`{
		"records": [
			{"employee_name": "张三", "period_month": "2025-01", "metric_code": "HOUR_TOTAL", "metric_value": 160.5, "unit": "hour"}
		],
		"policy": [
			{"employee_name_norm": "张三", "period_month": "2025-01", "mode": "SALARIED", "base_amount": "10000",
			 "social_security_json": {"employee": 0.1}, "allowances_json": {"fixed": {"餐补": 200}}}
		]
	}`)

	out, err := CanonicalJSON(payload, Options{WorkspaceID: "2025-01"})
	require.NoError(t, err)
	require.Len(t, out.Facts, 1)
	require.Len(t, out.Policies, 1)

	assert.Equal(t, "160.5", out.Facts[0].MetricValue.String())
	p := out.Policies[0]
	assert.Equal(t, "10000", p.BaseAmount.Decimal.String())
	assert.Equal(t, "0.1", p.SocialSecurityEmployeeRatio().String())
	assert.JSONEq(t, `{"fixed":{"餐补":200}}`, p.Allowances.Text())
}

func TestCanonicalJSONRequiresSections(t *testing.T) {
	_, err := CanonicalJSON([]byte(`{"items": []}`), Options{WorkspaceID: "2025-01"})
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = CanonicalJSON([]byte(`{not json`), Options{WorkspaceID: "2025-01"})
	assert.ErrorIs(t, err, ErrParse)
}
