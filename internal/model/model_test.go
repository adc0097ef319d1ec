package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTreeKeepsExactDecimals(t *testing.T) {
	tree, err := ParseTree(`{"employee": 0.105, "employer": "0.16", "items": [1, "交通", true, null]}`)
	require.NoError(t, err)
	require.True(t, tree.IsMap())

	employee, ok := tree.Get("employee")
	require.True(t, ok)
	d, ok := employee.Decimal()
	require.True(t, ok)
	assert.Equal(t, "0.105", d.String())

	employer, _ := tree.Get("employer")
	d, ok = employer.Decimal()
	require.True(t, ok)
	assert.True(t, d.Equal(decimal.RequireFromString("0.16")))

	items, _ := tree.Get("items")
	require.Len(t, items.Items(), 4)
	assert.Equal(t, KindBool, items.Items()[2].Kind())
	assert.True(t, items.Items()[3].IsNull())

	blank, err := ParseTree("   ")
	require.NoError(t, err)
	assert.True(t, blank.IsNull())

	_, err = ParseTree("{broken")
	assert.Error(t, err)
}

func TestTreeMarshalIsCanonical(t *testing.T) {
	tree := Map(map[string]Tree{
		"zeta":  Number(decimal.RequireFromString("1.50")),
		"alpha": String("餐补"),
		"mid":   List(Bool(false), Null()),
	})

	data, err := json.Marshal(tree)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":"餐补","mid":[false,null],"zeta":1.5}`, string(data))

	var back Tree
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, tree.Equal(back))
}

func TestTreeEqualityAndCopies(t *testing.T) {
	a := Map(map[string]Tree{"rate": Number(decimal.RequireFromString("0.10"))})
	b := Map(map[string]Tree{"rate": Number(decimal.RequireFromString("0.1"))})
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(String("0.1")))

	c := a.With("cap", Number(decimal.NewFromInt(100)))
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, []string{"cap", "rate"}, c.Keys())

	entries := c.Entries()
	delete(entries, "cap")
	assert.Equal(t, 2, c.Len())

	assert.Equal(t, []string{"x"}, String("ignored").With("x", Null()).Keys())
}

func TestTreeEmptinessAndText(t *testing.T) {
	assert.True(t, Null().IsEmpty())
	assert.True(t, Map(nil).IsEmpty())
	assert.True(t, List().IsEmpty())
	assert.True(t, String("").IsEmpty())
	assert.False(t, Bool(false).IsEmpty())
	assert.False(t, Number(decimal.Zero).IsEmpty())

	assert.Equal(t, "", Null().Text())
	assert.Equal(t, "true", Bool(true).Text())
	assert.Equal(t, "12.5", Number(decimal.RequireFromString("12.50")).Text())
	assert.Equal(t, `{"a":1}`, Map(map[string]Tree{"a": Number(decimal.NewFromInt(1))}).Text())

	_, ok := String("abc").Decimal()
	assert.False(t, ok)
	_, ok = Bool(true).Decimal()
	assert.False(t, ok)
}

func TestFromAny(t *testing.T) {
	tree, err := FromAny(map[string]any{
		"int":   3,
		"float": 0.5,
		"dec":   decimal.RequireFromString("7.25"),
		"list":  []any{"a", int64(2)},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"dec":7.25,"float":0.5,"int":3,"list":["a",2]}`, tree.Text())

	_, err = FromAny(struct{}{})
	assert.Error(t, err)
}

func validFact() FactRecord {
	return FactRecord{
		WorkspaceID:      "2025-03",
		EmployeeName:     "张三",
		EmployeeNameNorm: "张三",
		PeriodMonth:      "2025-03",
		MetricCode:       MetricHourTotal,
		MetricValue:      decimal.NewFromInt(160),
		Unit:             UnitHour,
		Currency:         DefaultCurrency,
		Confidence:       decimal.NewFromInt(1),
	}
}

func TestFactValidate(t *testing.T) {
	tests := []struct {
		want   error
		modify func(*FactRecord)
		name   string
	}{
		{name: "valid", modify: func(*FactRecord) {}},
		{name: "month of hours is allowed", modify: func(f *FactRecord) { f.MetricValue = MaxMonthlyHours }},
		{name: "missing employee", want: ErrValidation, modify: func(f *FactRecord) { f.EmployeeNameNorm = " " }},
		{name: "bad period", want: ErrInvalidPeriod, modify: func(f *FactRecord) { f.PeriodMonth = "2025-13" }},
		{name: "unknown metric", want: ErrValidation, modify: func(f *FactRecord) { f.MetricCode = "HOUR_NAP" }},
		{name: "too many hours", want: ErrHourOutOfRange, modify: func(f *FactRecord) { f.MetricValue = decimal.NewFromInt(745) }},
		{name: "negative hours", want: ErrHourOutOfRange, modify: func(f *FactRecord) { f.MetricValue = decimal.NewFromInt(-1) }},
		{
			name: "negative currency",
			want: ErrNegativeCurrency,
			modify: func(f *FactRecord) {
				f.MetricCode, f.Unit, f.MetricValue = MetricAmountBase, UnitCurrency, decimal.NewFromInt(-5)
			},
		},
		{
			name: "negative days pass",
			modify: func(f *FactRecord) {
				f.MetricCode, f.Unit, f.MetricValue = MetricDaysAbsence, UnitDay, decimal.NewFromInt(-1)
			},
		},
		{name: "confidence above one", want: ErrValidation, modify: func(f *FactRecord) { f.Confidence = decimal.RequireFromString("1.01") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFact()
			tt.modify(&f)
			err := f.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestMetricCodes(t *testing.T) {
	code, err := ParseMetricCode(" hour_ot_wd ")
	require.NoError(t, err)
	assert.Equal(t, MetricHourOTWeekday, code)
	assert.Equal(t, UnitHour, code.DefaultUnit())
	assert.Equal(t, UnitDay, MetricDaysLeave.DefaultUnit())
	assert.Equal(t, UnitCurrency, MetricAmountTax.DefaultUnit())

	_, err = ParseMetricCode("BONUS")
	assert.ErrorIs(t, err, ErrValidation)

	unit, err := ParseUnit("Currency")
	require.NoError(t, err)
	assert.Equal(t, UnitCurrency, unit)
}

func TestParseMode(t *testing.T) {
	for _, label := range []string{"salaried", "月薪", "固定工资"} {
		mode, err := ParseMode(label)
		require.NoError(t, err, label)
		assert.Equal(t, ModeSalaried, mode)
	}
	for _, label := range []string{"Hourly", "时薪", "计时"} {
		mode, err := ParseMode(label)
		require.NoError(t, err, label)
		assert.Equal(t, ModeHourly, mode)
	}
	_, err := ParseMode("piecework")
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestPolicyValidate(t *testing.T) {
	salaried := PolicySnapshot{EmployeeNameNorm: "张三", PeriodMonth: "2025-03", Mode: ModeSalaried}
	assert.NoError(t, salaried.ValidateShape())
	assert.ErrorIs(t, salaried.Validate(), ErrMissingBaseAmount)

	salaried.BaseAmount = NewNullDecimal(decimal.NewFromInt(10000))
	assert.NoError(t, salaried.Validate())

	hourly := PolicySnapshot{EmployeeNameNorm: "李四", PeriodMonth: "2025-03", Mode: ModeHourly}
	assert.ErrorIs(t, hourly.Validate(), ErrMissingBaseRate)

	hourly.BaseRate = NewNullDecimal(decimal.NewFromInt(-60))
	assert.ErrorIs(t, hourly.ValidateShape(), ErrNegativeCurrency)

	bad := PolicySnapshot{EmployeeNameNorm: "王五", PeriodMonth: "2025-03", Mode: "DAILY"}
	assert.ErrorIs(t, bad.ValidateShape(), ErrInvalidMode)
}

func TestPolicyHashAndRatio(t *testing.T) {
	p := PolicySnapshot{
		EmployeeNameNorm: "张三",
		PeriodMonth:      "2025-03",
		Mode:             ModeSalaried,
		BaseAmount:       NewNullDecimal(decimal.NewFromInt(10000)),
	}
	assert.True(t, p.SocialSecurityEmployeeRatio().IsZero())

	first := p.ComputeHash()
	assert.Len(t, first, 64)
	assert.Equal(t, first, p.ComputeHash())

	p.SocialSecurity = Map(map[string]Tree{"employee": String("0.105")})
	assert.Equal(t, "0.105", p.SocialSecurityEmployeeRatio().String())
	assert.NotEqual(t, first, p.ComputeHash())

	withRaw := p
	withRaw.RawSnapshot = Map(map[string]Tree{"姓名": String("张三")})
	other := withRaw
	other.BaseAmount = NewNullDecimal(decimal.NewFromInt(1))
	assert.Equal(t, withRaw.ComputeHash(), other.ComputeHash())
}

func TestValidPeriod(t *testing.T) {
	assert.True(t, ValidPeriod("2025-01"))
	assert.True(t, ValidPeriod("1999-12"))
	assert.False(t, ValidPeriod("2025-00"))
	assert.False(t, ValidPeriod("2025-1"))
	assert.False(t, ValidPeriod("202503"))
}

func TestJobTransitions(t *testing.T) {
	assert.True(t, JobQueued.CanTransition(JobProcessing))
	assert.True(t, JobQueued.CanTransition(JobFailed))
	assert.False(t, JobQueued.CanTransition(JobCompleted))
	assert.True(t, JobProcessing.CanTransition(JobCompleted))
	assert.False(t, JobCompleted.CanTransition(JobFailed))
	assert.False(t, JobFailed.CanTransition(JobProcessing))

	assert.True(t, JobCompleted.Terminal())
	assert.True(t, JobFailed.Terminal())
	assert.False(t, JobProcessing.Terminal())
}

func TestValidationErrorsUnwrap(t *testing.T) {
	for _, err := range []error{ErrHourOutOfRange, ErrNegativeCurrency, ErrMissingBaseAmount, ErrMissingBaseRate, ErrInvalidPeriod, ErrInvalidMode} {
		assert.True(t, errors.Is(err, ErrValidation), err.Error())
	}
}
