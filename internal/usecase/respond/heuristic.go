package respond

import (
	"regexp"
	"strings"

	"github.com/kailas-cloud/corpintel/internal/domain/query"
	"github.com/kailas-cloud/corpintel/internal/domain/response"
)

type section int

const (
	secNone section = iota
	secSummary
	secAnalysis
	secFindings
	secRisks
	secRecommendations
)

const headingWords = `摘要|总结|结论|概述|详细分析|分析|关键发现|主要发现|发现|风险评估|风险提示|风险|建议|整改建议|` +
	`summary|conclusion|analysis|key findings|findings|risks?|recommendations?`

var (
	// markedHeadingRe matches "## 风险", "1. 建议：", "【摘要】", "**Summary**".
	markedHeadingRe = regexp.MustCompile(`(?i)^\s*(?:#{1,6}\s*|\*\*|【|\d+[.、)]\s*|[一二三四五六七八九十]+[、.]\s*)(` +
		headingWords + `)(?:】|\*\*)?\s*[:：]?\s*(.*)$`)
	// colonHeadingRe matches "风险：..." without a marker.
	colonHeadingRe = regexp.MustCompile(`(?i)^\s*(` + headingWords + `)\s*[:：]\s*(.*)$`)
	bulletRe       = regexp.MustCompile(`^\s*(?:[-*•·]|\d+[.、)]|[（(]\d+[)）])\s*`)
	riskLevelRe    = regexp.MustCompile(`风险(?:等级|水平|程度)?\s*[:：为是]?\s*(高|中|低)`)
)

const summaryRunes = 300

func classify(word string) section {
	w := strings.ToLower(word)
	switch {
	case strings.Contains(w, "摘要"), strings.Contains(w, "总结"), strings.Contains(w, "结论"),
		strings.Contains(w, "概述"), w == "summary", w == "conclusion":
		return secSummary
	case strings.Contains(w, "发现"), strings.Contains(w, "finding"):
		return secFindings
	case strings.Contains(w, "风险"), strings.HasPrefix(w, "risk"):
		return secRisks
	case strings.Contains(w, "建议"), strings.HasPrefix(w, "recommendation"):
		return secRecommendations
	case strings.Contains(w, "分析"), w == "analysis":
		return secAnalysis
	}
	return secNone
}

func heading(line string) (section, string, bool) {
	for _, re := range []*regexp.Regexp{markedHeadingRe, colonHeadingRe} {
		if m := re.FindStringSubmatch(line); m != nil {
			return classify(m[1]), strings.TrimSpace(m[2]), true
		}
	}
	return secNone, "", false
}

// heuristicParse splits headed plain text into response sections. It fails
// when no heading is recognized.
func heuristicParse(raw string, r *response.Response) bool {
	buckets := map[section][]string{}
	current, found := secNone, false
	var preamble []string

	for _, line := range strings.Split(raw, "\n") {
		if sec, rest, ok := heading(line); ok {
			current, found = sec, true
			if rest != "" {
				buckets[current] = append(buckets[current], rest)
			}
			continue
		}
		item := strings.TrimSpace(bulletRe.ReplaceAllString(line, ""))
		if item == "" {
			continue
		}
		if current == secNone {
			preamble = append(preamble, item)
		} else {
			buckets[current] = append(buckets[current], item)
		}
	}
	if !found {
		return false
	}

	summary := strings.Join(buckets[secSummary], "\n")
	if summary == "" {
		summary = strings.Join(preamble, "\n")
	}
	if summary == "" {
		summary = strings.TrimSpace(raw)
	}
	r.Summary = query.Truncate(summary, summaryRunes)
	r.DetailedAnalysis.Integrated = nonNil(buckets[secAnalysis])
	r.KeyFindings = nonNil(buckets[secFindings])
	r.RiskAssessment.IdentifiedRisks = nonNil(buckets[secRisks])
	r.Recommendations = nonNil(buckets[secRecommendations])
	if m := riskLevelRe.FindStringSubmatch(raw); m != nil {
		r.RiskAssessment.RiskLevel = m[1]
	}
	return true
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
