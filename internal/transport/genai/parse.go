package genai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kailas-cloud/corpintel/internal/domain/external"
)

const (
	defaultRelevance  = 0.7
	defaultSource     = "网络搜索"
	minParagraphRunes = 80
	maxParagraphRunes = 350
	maxTitleRunes     = 60
)

var (
	paragraphSplit = regexp.MustCompile(`\n\s*\n+`)

	titlePatterns = []*regexp.Regexp{
		regexp.MustCompile(`标题[：:]\s*(.+)`),
		regexp.MustCompile(`##\s*(.+)`),
		regexp.MustCompile(`【(.+?)】`),
		regexp.MustCompile(`(?m)^\s*(\d+[.、]\s*.+)`),
	}
	sourcePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:信息)?来源[：:]\s*(.+)`),
		regexp.MustCompile(`摘自[：:]\s*(.+)`),
		regexp.MustCompile(`据(.+?)报道`),
	}
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{4}年\d{1,2}月\d{1,2}日`),
		regexp.MustCompile(`\d{4}-\d{1,2}-\d{1,2}`),
		regexp.MustCompile(`\d{4}/\d{1,2}/\d{1,2}`),
		regexp.MustCompile(`\d{4}年\d{1,2}月`),
	}
)

type rawResult struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	PublishDate string `json:"publish_date"`
	Relevance   any    `json:"relevance_score"`
}

// ParseResults turns a search reply into results. A JSON array is preferred;
// otherwise each sufficiently long paragraph becomes one result.
func ParseResults(text string, q external.Query, now time.Time) []external.Result {
	if out, ok := parseJSON(text, q, now); ok {
		return out
	}
	return parseParagraphs(text, q, now)
}

func parseJSON(text string, q external.Query, now time.Time) ([]external.Result, bool) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, false
	}

	var raw []rawResult
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, false
	}

	out := make([]external.Result, 0, len(raw))
	for i, r := range raw {
		content := strings.TrimSpace(r.Content)
		if content == "" {
			continue
		}
		res := external.Result{
			Content:        content,
			Title:          strings.TrimSpace(r.Title),
			Source:         strings.TrimSpace(r.Source),
			URL:            strings.TrimSpace(r.URL),
			PublishDate:    strings.TrimSpace(r.PublishDate),
			RelevanceScore: relevance(r.Relevance),
		}
		if res.Title == "" {
			res.Title = fmt.Sprintf("%s结果 %d", label(q), i+1)
		}
		fillDefaults(&res, now)
		out = append(out, res)
	}
	return out, true
}

func parseParagraphs(text string, q external.Query, now time.Time) []external.Result {
	var out []external.Result
	for _, section := range paragraphSplit.Split(text, -1) {
		section = strings.TrimSpace(section)
		if utf8.RuneCountInString(section) < minParagraphRunes {
			continue
		}
		res := external.Result{
			Content:        truncate(section, maxParagraphRunes),
			Title:          extractTitle(section, fmt.Sprintf("关于%s的信息", q.Text)),
			Source:         firstMatch(sourcePatterns, section, true),
			PublishDate:    firstMatch(datePatterns, section, false),
			RelevanceScore: defaultRelevance,
		}
		fillDefaults(&res, now)
		out = append(out, res)
	}
	return out
}

func fillDefaults(r *external.Result, now time.Time) {
	if r.Source == "" {
		r.Source = defaultSource
	}
	if r.PublishDate == "" {
		r.PublishDate = now.Format("2006-01-02")
	}
}

func label(q external.Query) string {
	if q.Scenario != "" {
		return q.Scenario
	}
	return "搜索"
}

// relevance accepts a number or a numeric string; missing or invalid values
// get the default, the rest is clamped to [0,1].
func relevance(v any) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return defaultRelevance
		}
		f = parsed
	default:
		return defaultRelevance
	}
	return min(max(f, 0), 1)
}

func extractTitle(section, fallback string) string {
	if t := firstMatch(titlePatterns, section, true); t != "" {
		return truncate(t, maxTitleRunes)
	}
	if line, _, _ := strings.Cut(section, "\n"); strings.TrimSpace(line) != "" {
		return truncate(strings.TrimSpace(line), maxTitleRunes)
	}
	return fallback
}

func firstMatch(patterns []*regexp.Regexp, s string, group bool) string {
	for _, re := range patterns {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		if group && len(m) > 1 {
			return strings.TrimSpace(m[1])
		}
		return strings.TrimSpace(m[0])
	}
	return ""
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
