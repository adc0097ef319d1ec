package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Veraticus/payflow/internal/model"
)

var (
	yearPattern         = regexp.MustCompile(`(19|20)\d{2}`)
	numericMonthPattern = regexp.MustCompile(`(\d{1,2})\s*月`)
	chineseMonthPattern = regexp.MustCompile(`第?([一二三四五六七八九十]{1,3})\s*月`)
	englishWordPattern  = regexp.MustCompile(`[A-Za-z]+`)
	bareNumberPattern   = regexp.MustCompile(`\d{1,2}`)
)

var chineseDigits = map[rune]int{
	'一': 1, '二': 2, '三': 3, '四': 4, '五': 5,
	'六': 6, '七': 7, '八': 8, '九': 9,
}

var englishMonths = map[string]int{
	"jan": 1, "january": 1,
	"feb": 2, "february": 2,
	"mar": 3, "march": 3,
	"apr": 4, "april": 4,
	"may": 5,
	"jun": 6, "june": 6,
	"jul": 7, "july": 7,
	"aug": 8, "august": 8,
	"sep": 9, "sept": 9, "september": 9,
	"oct": 10, "october": 10,
	"nov": 11, "november": 11,
	"dec": 12, "december": 12,
}

// NormalizePeriod converts a free-form month label into YYYY-MM.
//
// Values already in YYYY-MM form are returned as is. Otherwise a year token
// and a month token are looked for independently; a missing year borrows the
// fallback's year and a missing month returns the fallback unchanged.
func NormalizePeriod(value, fallback string) string {
	value = strings.TrimSpace(value)
	if model.ValidPeriod(value) {
		return value
	}
	if value == "" {
		return fallback
	}

	year := yearPattern.FindString(value)
	rest := value
	if year != "" {
		rest = strings.Replace(value, year, " ", 1)
	}

	month, ok := parseMonth(rest)
	if !ok {
		return fallback
	}
	if year == "" {
		if !model.ValidPeriod(fallback) {
			return fallback
		}
		year = fallback[:4]
	}
	return fmt.Sprintf("%s-%02d", year, month)
}

// parseMonth finds the first month token in s, trying the unambiguous forms
// before a bare number.
func parseMonth(s string) (int, bool) {
	if m := numericMonthPattern.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && validMonth(n) {
			return n, true
		}
	}
	if m := chineseMonthPattern.FindStringSubmatch(s); m != nil {
		if n, ok := chineseNumber(m[1]); ok && validMonth(n) {
			return n, true
		}
	}
	for _, word := range englishWordPattern.FindAllString(s, -1) {
		if n, ok := englishMonths[strings.ToLower(word)]; ok {
			return n, true
		}
	}
	for _, digits := range bareNumberPattern.FindAllString(s, -1) {
		if n, err := strconv.Atoi(digits); err == nil && validMonth(n) {
			return n, true
		}
	}
	return 0, false
}

// chineseNumber parses the numerals 一 through 十二.
func chineseNumber(s string) (int, bool) {
	runes := []rune(s)
	switch len(runes) {
	case 1:
		if runes[0] == '十' {
			return 10, true
		}
		n, ok := chineseDigits[runes[0]]
		return n, ok
	case 2:
		if runes[0] != '十' {
			return 0, false
		}
		n, ok := chineseDigits[runes[1]]
		return 10 + n, ok
	default:
		return 0, false
	}
}

func validMonth(n int) bool {
	return n >= 1 && n <= 12
}
