// Package names canonicalizes employee names so records from different
// documents can be joined.
package names

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKC, trims, lowercases and strips every whitespace rune.
// The result is the join key between facts and policies. Normalize is
// idempotent.
func Normalize(name string) string {
	folded := strings.ToLower(strings.TrimSpace(norm.NFKC.String(name)))
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Similarity returns a score in [0,1] for how alike two names are after
// normalization, based on Levenshtein distance over runes. It is a lookup aid
// only; the calculation join never uses it.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	longest := max(utf8.RuneCountInString(na), utf8.RuneCountInString(nb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(na, nb))/float64(longest)
}

// Match is a candidate name and its similarity to the looked-up name.
type Match struct {
	Name  string
	Score float64
}

// Rank scores candidates against name and returns at most limit matches,
// best first. Ties sort by name. A limit of zero or less keeps them all.
func Rank(name string, candidates []string, limit int) []Match {
	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		matches = append(matches, Match{Name: c, Score: Similarity(name, c)})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Name < matches[j].Name
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
