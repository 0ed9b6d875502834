package assemble

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/kailas-cloud/corpintel/internal/domain/candidate"
	"github.com/kailas-cloud/corpintel/internal/domain/document"
	"github.com/kailas-cloud/corpintel/internal/domain/evidence"
	"github.com/kailas-cloud/corpintel/internal/domain/external"
	"github.com/kailas-cloud/corpintel/internal/domain/scenario"
)

func local(content string) candidate.Fused {
	md := document.Metadata{}.
		With(document.FieldCompanyName, "欣强电子").
		With(document.FieldSource, "年报.pdf")
	return candidate.Fused{
		Candidate: candidate.Candidate{Content: content, Metadata: md, Strategy: candidate.StrategySemantic},
		Score:     0.85,
	}
}

func web(content string) candidate.Fused {
	c := external.Result{Content: content, Title: "新闻", Source: "财经网", PublishDate: "2025-01-02"}.ToCandidate()
	return candidate.Fused{Candidate: c, Score: 0.5}
}

func TestAssemble_SingleLocal(t *testing.T) {
	rule, _ := scenario.Get(scenario.Withdrawal)
	c := New(DefaultConfig()).Assemble(Input{
		Local:  []candidate.Fused{local("欣强电子撤否原因是财务问题")},
		Query:  "分析欣强电子的撤否原因",
		Entity: "欣强电子",
		Rule:   rule,
	})
	if c.LocalCount != 1 || c.ExternalCount != 0 {
		t.Fatalf("counts = %d/%d", c.LocalCount, c.ExternalCount)
	}
	if n := strings.Count(c.Text, "【本地文档"); n != 1 {
		t.Errorf("local blocks = %d", n)
	}
	for _, want := range []string{"目标企业: 欣强电子", rule.Framework, rule.FocusAreas[4], "未执行联网搜索", "年报.pdf"} {
		if !strings.Contains(c.Text, want) {
			t.Errorf("context misses %q", want)
		}
	}
	if strings.Contains(c.Text, rule.FocusAreas[5]) {
		t.Error("only the first five focus areas belong in the context")
	}
	if strings.Contains(c.Text, "未找到任何相关信息") {
		t.Error("low-confidence disclaimer with evidence present")
	}
}

func TestAssemble_Caps(t *testing.T) {
	a := New(DefaultConfig())
	c := a.Assemble(Input{
		Local:    []candidate.Fused{local("一"), local("二"), local("三"), local("四")},
		External: []candidate.Fused{web("甲"), web("乙"), web("丙")},
		Query:    "q",
	})
	if c.LocalCount != 3 || c.ExternalCount != 2 {
		t.Errorf("counts = %d/%d", c.LocalCount, c.ExternalCount)
	}
	if !strings.Contains(c.Text, "来源: 财经网 (2025-01-02)") {
		t.Error("external block missing source/date")
	}
}

func TestAssemble_ZeroEvidence(t *testing.T) {
	c := New(DefaultConfig()).Assemble(Input{
		Query:    "q",
		Decision: &evidence.Decision{ShouldSearch: true},
	})
	if !strings.Contains(c.Text, "未找到任何相关信息") {
		t.Error("expected low-confidence disclaimer")
	}
	if !strings.Contains(c.Text, "联网搜索未获得有效结果") {
		t.Error("expected empty-search note")
	}
}

func TestAssemble_BudgetDropsWholePassages(t *testing.T) {
	long := strings.Repeat("字", 240)
	cfg := DefaultConfig()
	cfg.CharBudget = 900
	c := New(cfg).Assemble(Input{
		Local: []candidate.Fused{local(long), local(long + "乙"), local(long + "丙")},
		Query: "q",
	})
	if got := utf8.RuneCountInString(c.Text); got > cfg.CharBudget {
		t.Fatalf("context %d runes exceeds budget %d", got, cfg.CharBudget)
	}
	if !c.Truncated || c.LocalCount == 0 || c.LocalCount == 3 {
		t.Fatalf("expected partial fit, got %d passages truncated=%v", c.LocalCount, c.Truncated)
	}
	if n := strings.Count(c.Text, long); n != c.LocalCount {
		t.Errorf("passage cut mid-way: %d full passages for %d blocks", n, c.LocalCount)
	}
}

func TestAssemble_BudgetBoundsFixedSections(t *testing.T) {
	rule, _ := scenario.Get(scenario.Withdrawal)
	tests := []struct {
		name   string
		budget int
		local  []candidate.Fused
	}{
		{"guidance shrinks", 300, nil},
		{"guidance shrinks with evidence", 350, []candidate.Fused{local("欣强电子撤否原因是财务问题")}},
		{"text cut", 40, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.CharBudget = tt.budget
			c := New(cfg).Assemble(Input{
				Local:  tt.local,
				Query:  "分析欣强电子的撤否原因",
				Entity: "欣强电子",
				Rule:   rule,
			})
			if got := utf8.RuneCountInString(c.Text); got > tt.budget {
				t.Fatalf("context %d runes exceeds budget %d", got, tt.budget)
			}
			if !c.Truncated {
				t.Error("expected Truncated when sections were dropped")
			}
		})
	}
}

func TestAssemble_DefaultBudgetKeepsGuidance(t *testing.T) {
	rule, _ := scenario.Get(scenario.Withdrawal)
	c := New(DefaultConfig()).Assemble(Input{Query: "q", Rule: rule})
	if c.Truncated {
		t.Error("default budget must not shrink the guidance")
	}
	if !strings.Contains(c.Text, rule.OutputRequirements[0]) || !strings.Contains(c.Text, rule.FocusAreas[0]) {
		t.Error("guidance missing under the default budget")
	}
}

func TestPrompt(t *testing.T) {
	rule, _ := scenario.Get(scenario.Tutoring)
	a := New(DefaultConfig())
	in := Input{Query: "q", Entity: "某科技", Rule: rule}
	p := a.Prompt(in, a.Assemble(in))

	if !strings.Contains(p.System, rule.DisplayName) {
		t.Errorf("system role = %q", p.System)
	}
	for _, want := range []string{"tutoring_analysis", "## 输出要求", rule.Dimensions[0].Title, "【重点关注】"} {
		if !strings.Contains(p.User, want) {
			t.Errorf("prompt misses %q", want)
		}
	}

	generic := a.Prompt(Input{Query: "q"}, a.Assemble(Input{Query: "q"}))
	if generic.System != genericRole {
		t.Errorf("generic role = %q", generic.System)
	}
	if strings.Contains(generic.User, "tutoring_analysis") || strings.Contains(generic.User, "withdrawal_analysis") {
		t.Error("generic prompt carries a scenario schema")
	}
}
