// Package assemble builds the bounded evidence context and the generation
// prompt for one analysis.
package assemble

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/corpintel/internal/domain/candidate"
	"github.com/kailas-cloud/corpintel/internal/domain/document"
	"github.com/kailas-cloud/corpintel/internal/domain/evidence"
	"github.com/kailas-cloud/corpintel/internal/domain/query"
	"github.com/kailas-cloud/corpintel/internal/domain/scenario"
)

const (
	scenarioFocusAreas  = 5
	guidanceFocusAreas  = 4
	closingRequirements = 3

	maxQueryChars = 500

	unknown = "未知"

	localSection    = "=== 本地文档库信息 ===\n"
	noLocal         = "本地库中未找到相关文档\n"
	externalSection = "\n=== 网络最新信息 ===\n"
	searchEmpty     = "联网搜索未获得有效结果\n"
	searchSkipped   = "未执行联网搜索\n"
)

// Config bounds the assembled context.
type Config struct {
	CharBudget    int
	MaxLocal      int
	MaxExternal   int
	LocalChars    int
	ExternalChars int
}

// DefaultConfig returns a 6000 character budget with 3 local and 2 external passages.
func DefaultConfig() Config {
	return Config{CharBudget: 6000, MaxLocal: 3, MaxExternal: 2, LocalChars: 250, ExternalChars: 200}
}

// Input is everything the assembler reads.
type Input struct {
	Local    []candidate.Fused
	External []candidate.Fused
	Query    string
	Entity   string
	Rule     *scenario.Rule
	// Decision is the search decision; nil when search was not considered.
	Decision *evidence.Decision
}

// Context is the assembled evidence block.
type Context struct {
	Text          string
	LocalCount    int
	ExternalCount int
	// Truncated is set when passages were dropped to fit the budget.
	Truncated bool
}

// Assembler renders contexts and prompts.
type Assembler struct {
	cfg Config
}

// New creates an assembler; zero config fields take DefaultConfig values.
func New(cfg Config) *Assembler {
	def := DefaultConfig()
	if cfg.CharBudget <= 0 {
		cfg.CharBudget = def.CharBudget
	}
	if cfg.MaxLocal <= 0 {
		cfg.MaxLocal = def.MaxLocal
	}
	if cfg.MaxExternal <= 0 {
		cfg.MaxExternal = def.MaxExternal
	}
	if cfg.LocalChars <= 0 {
		cfg.LocalChars = def.LocalChars
	}
	if cfg.ExternalChars <= 0 {
		cfg.ExternalChars = def.ExternalChars
	}
	return &Assembler{cfg: cfg}
}

// Assemble builds the context. Passages are added in rank order and a
// passage that does not fit the remaining budget is dropped whole. When the
// fixed sections alone exceed the budget, focus areas and requirements are
// dropped first and the text is cut as a last resort, so the result never
// exceeds CharBudget runes.
func (a *Assembler) Assemble(in Input) Context {
	planLocal := min(len(in.Local), a.cfg.MaxLocal)
	planExt := min(len(in.External), a.cfg.MaxExternal)

	var ctx Context
	focus, reqs := scenarioFocusAreas, closingRequirements
	head := header(in, focus)
	remaining := a.cfg.CharBudget - runes(head) - reserve(in.Rule, planLocal, planExt, reqs)
	for remaining < 0 && focus+reqs > 0 {
		if focus > 0 {
			focus--
		} else {
			reqs--
		}
		head = header(in, focus)
		remaining = a.cfg.CharBudget - runes(head) - reserve(in.Rule, planLocal, planExt, reqs)
		ctx.Truncated = true
	}

	take := func(docs []candidate.Fused, render func(n int, f *candidate.Fused) string) []string {
		var kept []string
		for i := range docs {
			blk := render(len(kept)+1, &docs[i])
			if n := runes(blk); n <= remaining {
				kept = append(kept, blk)
				remaining -= n
			} else {
				ctx.Truncated = true
			}
		}
		return kept
	}

	local := take(in.Local[:planLocal], a.localBlock)
	external := take(in.External[:planExt], a.externalBlock)
	ctx.LocalCount, ctx.ExternalCount = len(local), len(external)

	var b strings.Builder
	b.WriteString(head)
	b.WriteString(localSection)
	if len(local) == 0 {
		b.WriteString(noLocal)
	}
	for _, blk := range local {
		b.WriteString(blk)
	}
	b.WriteString(externalSection)
	switch {
	case len(external) > 0:
		for _, blk := range external {
			b.WriteString(blk)
		}
	case in.Decision != nil && in.Decision.ShouldSearch:
		b.WriteString(searchEmpty)
	default:
		b.WriteString(searchSkipped)
	}
	b.WriteString(closing(in.Rule, ctx.LocalCount, ctx.ExternalCount, reqs))

	ctx.Text = b.String()
	if runes(ctx.Text) > a.cfg.CharBudget {
		ctx.Text = string([]rune(ctx.Text)[:a.cfg.CharBudget])
		ctx.Truncated = true
	}
	return ctx
}

// reserve is the size of every fixed section except the header.
func reserve(r *scenario.Rule, planLocal, planExt, reqs int) int {
	return runes(localSection) + runes(noLocal) +
		runes(externalSection) + max(runes(searchEmpty), runes(searchSkipped)) +
		max(runes(closing(r, planLocal, planExt, reqs)), runes(closing(r, 0, 0, reqs)))
}

func header(in Input, focus int) string {
	var b strings.Builder
	b.WriteString("=== 分析任务概览 ===\n")
	fmt.Fprintf(&b, "原始查询: %s\n", query.Truncate(in.Query, maxQueryChars))
	if in.Entity != "" {
		fmt.Fprintf(&b, "目标企业: %s\n", in.Entity)
	}
	if r := in.Rule; r != nil {
		fmt.Fprintf(&b, "分析场景: %s\n", r.DisplayName)
		fmt.Fprintf(&b, "分析框架: %s\n", r.Framework)
		b.WriteString("\n=== 场景分析要求 ===\n")
		fmt.Fprintf(&b, "场景描述: %s\n", r.Description)
		if focus > 0 {
			b.WriteString("重点关注领域:\n")
			for _, fa := range r.FocusAreas[:min(focus, len(r.FocusAreas))] {
				fmt.Fprintf(&b, "  • %s\n", fa)
			}
		}
	}
	b.WriteString("\n")
	return b.String()
}

func (a *Assembler) localBlock(n int, f *candidate.Fused) string {
	md := f.Metadata
	return fmt.Sprintf("\n【本地文档%d】\n来源: %s\n企业: %s\n类型: %s\n相关度: %.3f\n内容: %s\n",
		n,
		orUnknown(md.Source()),
		orUnknown(md.Entity()),
		orUnknown(md.DocumentType()),
		f.Score,
		query.Truncate(f.Content, a.cfg.LocalChars),
	)
}

func (a *Assembler) externalBlock(n int, f *candidate.Fused) string {
	md := f.Metadata
	return fmt.Sprintf("\n【网络信息%d】\n标题: %s\n来源: %s (%s)\n内容: %s\n",
		n,
		orDefault(md.Tag(document.FieldTitle), "网络信息"),
		orDefault(md.Source(), "网络来源"),
		orDefault(md.Tag(document.FieldPublishDate), "未知日期"),
		query.Truncate(f.Content, a.cfg.ExternalChars),
	)
}

func closing(r *scenario.Rule, local, external, reqs int) string {
	var b strings.Builder
	b.WriteString("\n=== 分析指导 ===\n")
	if r != nil && reqs > 0 {
		b.WriteString("场景特定分析提示:\n")
		for _, req := range r.OutputRequirements[:min(reqs, len(r.OutputRequirements))] {
			fmt.Fprintf(&b, "  • %s\n", req)
		}
	}
	if local+external == 0 {
		b.WriteString("警告: 未找到任何相关信息\n")
		b.WriteString("请基于通用知识进行分析，并明确说明信息来源有限，结论置信度较低\n")
	} else {
		fmt.Fprintf(&b, "可用信息: 本地%d个 + 网络%d个\n", local, external)
		b.WriteString("请结合所有可用信息进行分析，并明确区分信息来源\n")
	}
	return b.String()
}

func orUnknown(s string) string { return orDefault(s, unknown) }

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func runes(s string) int { return utf8.RuneCountInString(s) }
