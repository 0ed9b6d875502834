package scenario

import (
	"regexp"
	"strings"
)

var (
	stockCodeRe   = regexp.MustCompile(`\d{6}`)
	companyNameRe = regexp.MustCompile(`\p{Han}{2,10}?(?:股份|科技|电子|集团|有限公司|公司|证券)`)
)

var financialMarkers = []string{"证券", "银行", "保险", "基金"}

// leadVerbs are request words the lazy name pattern picks up at the start.
var leadVerbs = []string{"请问", "请", "帮我", "分析", "查询", "了解", "关于", "介绍", "评估", "看看"}

// Extraction is what could be inferred from a free-text query.
type Extraction struct {
	Scenario  ID
	Company   string
	StockCode string
}

// Extract infers the company and scenario mentioned in a query. A company
// name takes precedence over a stock code. Scenarios are matched by detection
// keywords in registry order; financial institutions default to Withdrawal.
func Extract(q string) Extraction {
	var ex Extraction
	if m := companyNameRe.FindString(q); m != "" {
		ex.Company = trimLeadVerbs(m)
	}
	if m := stockCodeRe.FindString(q); m != "" {
		ex.StockCode = m
	}

	lower := strings.ToLower(q)
	for _, id := range order {
		for _, kw := range registry[id].DetectKeywords {
			if strings.Contains(lower, kw) {
				ex.Scenario = id
				return ex
			}
		}
	}
	for _, marker := range financialMarkers {
		if strings.Contains(ex.Company, marker) {
			ex.Scenario = Withdrawal
			break
		}
	}
	return ex
}

// Entity returns the company name, or the stock code if no name was found.
func (e Extraction) Entity() string {
	if e.Company != "" {
		return e.Company
	}
	return e.StockCode
}

func trimLeadVerbs(name string) string {
	for trimmed := true; trimmed; {
		trimmed = false
		for _, v := range leadVerbs {
			rest := strings.TrimPrefix(name, v)
			if rest != name && len([]rune(rest)) >= 4 {
				name, trimmed = rest, true
			}
		}
	}
	return name
}
