package engine

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed tax_table.yaml
var defaultTaxTable []byte

// ErrInvalidTaxTable is returned when a tax table cannot be used.
var ErrInvalidTaxTable = errors.New("invalid tax table")

// DefaultThreshold is the monthly allowance applied when a table omits
// default_threshold.
var DefaultThreshold = decimal.NewFromInt(5000)

// Bracket is one step of a progressive tax table. Limit is the width of the
// bracket; a nil Limit is unbounded.
type Bracket struct {
	Limit *decimal.Decimal
	Rate  decimal.Decimal
}

// TaxTable is an immutable progressive income tax table.
type TaxTable struct {
	Threshold decimal.Decimal
	Brackets  []Bracket
}

type taxTableFile struct {
	Threshold *string `yaml:"default_threshold"`
	Brackets  []struct {
		Limit *string `yaml:"limit"`
		Rate  string  `yaml:"rate"`
	} `yaml:"brackets"`
}

// ParseTaxTable decodes a YAML tax table with a default_threshold and a list
// of {limit, rate} brackets. A missing threshold means DefaultThreshold.
func ParseTaxTable(data []byte) (TaxTable, error) {
	var file taxTableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return TaxTable{}, fmt.Errorf("%w: %w", ErrInvalidTaxTable, err)
	}

	table := TaxTable{Threshold: DefaultThreshold}
	if file.Threshold != nil {
		threshold, err := decimal.NewFromString(*file.Threshold)
		if err != nil {
			return TaxTable{}, fmt.Errorf("%w: default_threshold %q", ErrInvalidTaxTable, *file.Threshold)
		}
		table.Threshold = threshold
	}

	for i, b := range file.Brackets {
		rate, err := decimal.NewFromString(b.Rate)
		if err != nil {
			return TaxTable{}, fmt.Errorf("%w: bracket %d rate %q", ErrInvalidTaxTable, i+1, b.Rate)
		}
		bracket := Bracket{Rate: rate}
		if b.Limit != nil {
			limit, err := decimal.NewFromString(*b.Limit)
			if err != nil {
				return TaxTable{}, fmt.Errorf("%w: bracket %d limit %q", ErrInvalidTaxTable, i+1, *b.Limit)
			}
			if !limit.IsPositive() {
				return TaxTable{}, fmt.Errorf("%w: bracket %d limit must be positive", ErrInvalidTaxTable, i+1)
			}
			bracket.Limit = &limit
		}
		table.Brackets = append(table.Brackets, bracket)
	}
	return table, nil
}

// DefaultTaxTable returns the built-in monthly table.
func DefaultTaxTable() TaxTable {
	table, err := ParseTaxTable(defaultTaxTable)
	if err != nil {
		panic(fmt.Sprintf("embedded tax table: %v", err))
	}
	return table
}

// Tax returns the unrounded tax on gross after personal social security.
// Income above the last bounded bracket of a table without an unbounded
// bracket is not taxed.
func (t TaxTable) Tax(gross, socialSecurity decimal.Decimal) decimal.Decimal {
	taxable := gross.Sub(socialSecurity).Sub(t.Threshold)
	if !taxable.IsPositive() {
		return decimal.Zero
	}

	tax := decimal.Zero
	remaining := taxable
	for _, b := range t.Brackets {
		if b.Limit == nil || remaining.LessThanOrEqual(*b.Limit) {
			tax = tax.Add(remaining.Mul(b.Rate))
			break
		}
		tax = tax.Add(b.Limit.Mul(b.Rate))
		remaining = remaining.Sub(*b.Limit)
		if !remaining.IsPositive() {
			break
		}
	}
	return tax
}
