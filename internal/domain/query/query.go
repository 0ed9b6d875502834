// Package query holds the text heuristics shared by fusion, sufficiency and
// augmentation: term extraction, stopword filtering and time-keyword checks.
package query

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	termRe  = regexp.MustCompile(`[\p{Han}\w]{2,}`)
	runRe   = regexp.MustCompile(`\p{Han}+|[a-z0-9]+`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// particles split CJK runs into keywords.
var particles = []string{"的", "了", "和", "与", "及", "或", "吗", "呢"}

// affixes are stripped from the edges of CJK keywords.
var affixes = []string{"为什么", "什么", "怎么", "如何", "哪些", "哪个", "分析", "查询", "请问", "一下", "是否"}

var stopwords = map[string]struct{}{
	"的": {}, "了": {}, "和": {}, "是": {}, "在": {}, "有": {}, "我": {}, "他": {}, "她": {}, "它": {},
	"这": {}, "那": {}, "什么": {}, "怎么": {}, "如何": {}, "为什么": {}, "哪些": {}, "哪个": {},
	"分析": {}, "查询": {}, "请问": {},
	"the": {}, "and": {}, "for": {}, "what": {}, "how": {}, "why": {}, "is": {}, "of": {}, "to": {},
}

// coreFillers are removed from a query to get its core terms.
var coreFillers = []string{
	"分析一下", "请问", "什么", "如何", "怎样", "为什么", "哪些", "哪个", "查询", "搜索",
	"了解", "查看", "的", "了", "和", "是", "在", "有",
}

// Terms returns the distinct lowercased runs of two or more CJK or word
// characters, in order of first appearance.
func Terms(q string) []string {
	return dedup(termRe.FindAllString(strings.ToLower(q), -1))
}

// Keywords returns distinct stopword-filtered keywords of at least two runes.
// CJK runs are split on particles and stripped of question/command affixes.
func Keywords(q string) []string {
	var out []string
	for _, run := range runRe.FindAllString(strings.ToLower(q), -1) {
		for _, piece := range splitAny(run, particles) {
			piece = trimAffixes(piece)
			if utf8.RuneCountInString(piece) < 2 {
				continue
			}
			if _, stop := stopwords[piece]; stop {
				continue
			}
			out = append(out, piece)
		}
	}
	return dedup(out)
}

// Core strips filler words from q. Falls back to the trimmed input when fewer
// than two runes remain.
func Core(q string) string {
	core := q
	for _, f := range coreFillers {
		core = strings.ReplaceAll(core, f, " ")
	}
	core = strings.TrimSpace(spaceRe.ReplaceAllString(core, " "))
	if utf8.RuneCountInString(core) < 2 {
		return strings.TrimSpace(q)
	}
	return core
}

// TimeKeywords returns the time-sensitive keywords for the given clock,
// including the current and prior year.
func TimeKeywords(now time.Time) []string {
	y := now.Year()
	return []string{"最新", "近期", "今年", "本月", "当前", "最近", strconv.Itoa(y), strconv.Itoa(y - 1)}
}

// FirstContained returns the first word contained in s.
func FirstContained(s string, words []string) (string, bool) {
	for _, w := range words {
		if w != "" && strings.Contains(s, w) {
			return w, true
		}
	}
	return "", false
}

// CountContained counts how many of words appear in s.
func CountContained(s string, words []string) int {
	n := 0
	for _, w := range words {
		if w != "" && strings.Contains(s, w) {
			n++
		}
	}
	return n
}

// Truncate cuts s to at most n runes, appending "..." when cut.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

// Prefix returns the first n runes of s.
func Prefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// IsCJK reports whether s contains a Han character.
func IsCJK(s string) bool {
	for _, r := range s {
		if r >= 0x4e00 && r <= 0x9fff {
			return true
		}
	}
	return false
}

func splitAny(s string, seps []string) []string {
	parts := []string{s}
	for _, sep := range seps {
		var next []string
		for _, p := range parts {
			next = append(next, strings.Split(p, sep)...)
		}
		parts = next
	}
	return parts
}

func trimAffixes(s string) string {
	for changed := true; changed; {
		changed = false
		for _, a := range affixes {
			if strings.HasPrefix(s, a) && s != a {
				s = strings.TrimPrefix(s, a)
				changed = true
			}
			if strings.HasSuffix(s, a) && s != a {
				s = strings.TrimSuffix(s, a)
				changed = true
			}
		}
	}
	return s
}

func dedup(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
