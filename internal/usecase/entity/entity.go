// Package entity generates name variants for fuzzy company matching.
package entity

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/corpintel/internal/domain/query"
)

// suffixes are corporate-form tails, longest first. Only the first match is stripped.
var suffixes = []string{"股份有限公司", "有限公司", "公司", "股份", "集团", "有限", "科技", "电子"}

const (
	minVariant   = 2
	maxNgram     = 4
	minWordToken = 3
	containScore = 0.8
)

// StripSuffix removes the first matching corporate suffix from the tail.
func StripSuffix(name string) string {
	name = strings.TrimSpace(name)
	for _, s := range suffixes {
		if rest, ok := strings.CutSuffix(name, s); ok && rest != "" {
			return strings.TrimSpace(rest)
		}
	}
	return name
}

// Variants returns the sorted, deduplicated substrings used to match an
// entity loosely. The result is non-empty whenever name has two or more runes.
func Variants(name string) []string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) < minVariant {
		return nil
	}

	set := make(map[string]struct{})
	add := func(s string) {
		if utf8.RuneCountInString(s) >= minVariant {
			set[s] = struct{}{}
		}
	}

	base := StripSuffix(name)
	add(base)

	if query.IsCJK(base) {
		runes := []rune(base)
		for n := minVariant; n <= maxNgram; n++ {
			for i := 0; i+n <= len(runes); i++ {
				add(string(runes[i : i+n]))
			}
		}
	}
	if strings.Contains(base, " ") {
		for _, tok := range strings.Fields(base) {
			if utf8.RuneCountInString(tok) >= minWordToken {
				add(tok)
			}
		}
	}
	if len(set) == 0 {
		add(name)
	}

	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// FuzzyMatch scores how well two names match: 0.8 when one contains the
// other (case-insensitive), otherwise Jaccard similarity over rune sets.
func FuzzyMatch(a, b string) float64 {
	a, b = strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return containScore
	}
	return Jaccard(a, b)
}

// Jaccard is |A∩B| / |A∪B| over the rune sets of a and b.
func Jaccard(a, b string) float64 {
	sa, sb := runeSet(a), runeSet(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	inter := 0
	for r := range sa {
		if _, ok := sb[r]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

func runeSet(s string) map[rune]struct{} {
	set := make(map[rune]struct{}, len(s))
	for _, r := range s {
		set[r] = struct{}{}
	}
	return set
}
