// Package augment decides whether an external search pass should run and
// builds its query.
package augment

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/corpintel/internal/domain/candidate"
	"github.com/kailas-cloud/corpintel/internal/domain/evidence"
	"github.com/kailas-cloud/corpintel/internal/domain/query"
	"github.com/kailas-cloud/corpintel/internal/domain/scenario"
)

const (
	mandatoryConfidence = 0.9
	userConfidence      = 1.0
	gapBase             = 0.5
)

// freshnessWords make a query time-sensitive on top of query.TimeKeywords.
var freshnessWords = []string{"新闻", "动态", "本周"}

type tier struct {
	name       string
	confidence float64
	words      []string
}

// tiers are checked in order; the first matching tier wins.
var tiers = []tier{
	{"mandatory", 0.9, []string{"最新", "近期", "实时", "今日", "今天", "本周", "新闻", "动态"}},
	{"recommended", 0.7, []string{"趋势", "发展", "前景", "预测", "变化", "更新", "政策", "监管"}},
	{"optional", 0.5, []string{"概况", "简介", "基本", "一般", "概述", "历史"}},
}

type gapPattern struct {
	re    *regexp.Regexp
	boost float64
}

var gapPatterns = []gapPattern{
	{regexp.MustCompile(`缺乏.*(数据|信息)`), 0.3},
	{regexp.MustCompile(`信息.*不足`), 0.3},
	{regexp.MustCompile(`没有.*找到`), 0.2},
	{regexp.MustCompile(`无法.*获取`), 0.2},
	{regexp.MustCompile(`需要.*最新`), 0.4},
	{regexp.MustCompile(`想要.*了解`), 0.1},
	{regexp.MustCompile(`查看.*详情`), 0.2},
}

// Assessor scores local evidence sufficiency.
type Assessor interface {
	Assess(results []candidate.Fused, q string) evidence.Report
}

// Input is one decision request.
type Input struct {
	Query      string
	Entity     string
	Rule       *scenario.Rule
	Results    []candidate.Fused
	Preference evidence.Preference
}

// Decider combines user preference, mandatory triggers, sufficiency and
// query features into a search decision.
type Decider struct {
	assessor  Assessor
	mandatory map[scenario.ID]struct{}
	now       func() time.Time
}

// New creates a decider. Scenarios in mandatory always trigger a search.
func New(assessor Assessor, mandatory []scenario.ID, now func() time.Time) *Decider {
	if now == nil {
		now = time.Now
	}
	m := make(map[scenario.ID]struct{}, len(mandatory))
	for _, id := range mandatory {
		m[id] = struct{}{}
	}
	return &Decider{assessor: assessor, mandatory: m, now: now}
}

// Decide evaluates the rules in precedence order. "never" stops evaluation
// immediately; "always" searches without consulting the assessor.
func (d *Decider) Decide(in Input) evidence.Decision {
	switch in.Preference {
	case evidence.PreferenceNever:
		return evidence.Decision{
			Type:    evidence.SearchUserDisabled,
			Reasons: []string{"external search disabled by user"},
		}
	case evidence.PreferenceAlways:
		return evidence.Decision{
			ShouldSearch: true,
			Type:         evidence.SearchUserRequested,
			Confidence:   userConfidence,
			Query:        d.buildQuery(in, nil),
			Reasons:      []string{"external search requested by user"},
		}
	}

	dec := evidence.Decision{Type: evidence.SearchNone, Reasons: []string{}}
	var conf float64
	trigger := func(t evidence.SearchType, c float64, reason string) {
		dec.ShouldSearch = true
		if dec.Type == evidence.SearchNone {
			dec.Type = t
		}
		conf = max(conf, c)
		dec.Reasons = append(dec.Reasons, reason)
	}

	now := d.now()
	if kw, ok := query.FirstContained(in.Query, append(query.TimeKeywords(now), freshnessWords...)); ok {
		trigger(evidence.SearchMandatory, mandatoryConfidence, fmt.Sprintf("time-sensitive keyword %q", kw))
	}
	if in.Rule != nil {
		if _, ok := d.mandatory[in.Rule.ID]; ok {
			trigger(evidence.SearchMandatory, mandatoryConfidence,
				fmt.Sprintf("scenario %s requires external information", in.Rule.ID))
		}
	}

	rep := d.assessor.Assess(in.Results, in.Query)
	dec.Sufficiency = &rep
	if !rep.IsSufficient {
		dec.ShouldSearch = true
		if dec.Type == evidence.SearchNone {
			dec.Type = evidence.SearchAuto
		}
		conf = max(conf, rep.Confidence)
		dec.Reasons = append(dec.Reasons, rep.Messages()...)
	}

	if t, ok := matchTier(in.Query); ok {
		trigger(evidence.SearchAuto, t.confidence, fmt.Sprintf("%s keyword tier", t.name))
	} else if c, ok := infoGap(in.Query); ok {
		trigger(evidence.SearchAuto, c, "query signals an information gap")
	}

	dec.Confidence = round2(min(conf, 1))
	if dec.ShouldSearch {
		dec.Query = d.buildQuery(in, &rep)
	}
	return dec
}

func matchTier(q string) (tier, bool) {
	for _, t := range tiers {
		if _, ok := query.FirstContained(q, t.words); ok {
			return t, true
		}
	}
	return tier{}, false
}

func infoGap(q string) (float64, bool) {
	c, hit := gapBase, false
	for _, p := range gapPatterns {
		if p.re.MatchString(q) {
			c += p.boost
			hit = true
		}
	}
	return min(c, 1), hit
}

// buildQuery joins entity, deficiency keywords, scenario keywords and the
// core query terms, dropping repeated tokens.
func (d *Decider) buildQuery(in Input, rep *evidence.Report) string {
	var parts []string
	if e := strings.TrimSpace(in.Entity); e != "" {
		parts = append(parts, e)
	}
	if rep != nil {
		if rep.Has(evidence.DeficiencyTemporal) {
			parts = append(parts, "最新", strconv.Itoa(d.now().Year())+"年", "近期")
		}
		if rep.Has(evidence.DeficiencyCount) || rep.Has(evidence.DeficiencySimilarity) {
			parts = append(parts, "详细")
		}
		if rep.Has(evidence.DeficiencyCoverage) {
			parts = append(parts, query.Keywords(in.Query)...)
		}
	}
	if in.Rule != nil {
		parts = append(parts, in.Rule.SearchKeywords...)
	}
	parts = append(parts, query.Core(in.Query))

	seen := make(map[string]struct{})
	var out []string
	for _, p := range parts {
		for _, tok := range strings.Fields(p) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			out = append(out, tok)
		}
	}
	return strings.Join(out, " ")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
