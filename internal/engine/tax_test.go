package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTaxTable(t *testing.T) {
	table := DefaultTaxTable()
	assert.Equal(t, "5000", table.Threshold.String())
	require.Len(t, table.Brackets, 7)
	assert.Equal(t, "3000", table.Brackets[0].Limit.String())
	assert.Equal(t, "0.03", table.Brackets[0].Rate.String())
	assert.Nil(t, table.Brackets[6].Limit)
	assert.Equal(t, "0.45", table.Brackets[6].Rate.String())
}

func TestTaxWalk(t *testing.T) {
	table := DefaultTaxTable()
	tests := []struct {
		name  string
		gross string
		ss    string
		want  string
	}{
		{"below threshold", "4000", "0", "0"},
		{"at threshold", "5000", "0", "0"},
		{"social security pushes below threshold", "5500", "600", "0"},
		{"first bracket", "7000", "0", "60"},
		{"first bracket edge", "8000", "0", "90"},
		{"second bracket", "10500", "1050", "235"},
		{"third bracket", "20000", "0", "1590"},
		{"unbounded", "100000", "0", "27590"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.Tax(d(tt.gross), d(tt.ss))
			assert.True(t, d(tt.want).Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestTaxIsMonotonic(t *testing.T) {
	table := DefaultTaxTable()
	prev := decimal.Zero
	for gross := int64(0); gross <= 120000; gross += 250 {
		tax := table.Tax(decimal.NewFromInt(gross), decimal.Zero)
		require.False(t, tax.LessThan(prev), "tax decreased at gross %d", gross)
		prev = tax
	}
}

func TestTaxWithoutUnboundedBracket(t *testing.T) {
	table, err := ParseTaxTable([]byte("default_threshold: 0\nbrackets:\n  - limit: 1000\n    rate: 0.1\n"))
	require.NoError(t, err)

	assert.Equal(t, "100", table.Tax(d("5000"), decimal.Zero).String())
}

func TestParseTaxTableDefaultsThreshold(t *testing.T) {
	table, err := ParseTaxTable([]byte("brackets: [{limit: null, rate: 0.1}]"))
	require.NoError(t, err)

	assert.Equal(t, "5000", table.Threshold.String())
	require.Len(t, table.Brackets, 1)
	assert.Nil(t, table.Brackets[0].Limit)
	assert.Equal(t, "100", table.Tax(d("6000"), decimal.Zero).String())
}

func TestParseTaxTableErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "brackets: ["},
		{"bad rate", "brackets:\n  - limit: 1000\n    rate: high\n"},
		{"bad threshold", "default_threshold: lots\n"},
		{"negative limit", "brackets:\n  - limit: -5\n    rate: 0.1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTaxTable([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidTaxTable)
		})
	}
}
