package tabular

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

var hundred = decimal.NewFromInt(100)

// ParseDecimal parses a cell as an exact decimal. Full-width digits are
// folded, thousands separators and currency symbols are dropped, and a
// trailing % divides by 100. Blank or non-numeric cells report false.
func ParseDecimal(cell string) (decimal.Decimal, bool) {
	text := strings.TrimSpace(norm.NFKC.String(cell))
	if text == "" {
		return decimal.Zero, false
	}
	percent := false
	if strings.HasSuffix(text, "%") {
		percent = true
		text = strings.TrimSpace(strings.TrimSuffix(text, "%"))
	}
	text = strings.NewReplacer(",", "", "¥", "", "￥", "", " ", "").Replace(text)
	if text == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, false
	}
	if percent {
		d = d.Div(hundred)
	}
	return d, true
}
