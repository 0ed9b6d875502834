package assemble

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/corpintel/internal/domain"
	"github.com/kailas-cloud/corpintel/internal/domain/scenario"
)

const genericRole = "你是一个专业、严谨的企业分析专家，擅长综合分析各种信息源。"

var closingNotes = []string{
	"必须明确区分本地文档和网络信息的分析依据",
	"对不确定性保持诚实，不夸大或编造信息",
	"所有结论必须有信息支撑",
	"保持专业、客观、谨慎的分析态度",
	"严格按照场景要求的分析框架进行分析",
}

// Prompt wraps an assembled context with the system role, the scenario
// guidance and the JSON output contract.
func (a *Assembler) Prompt(in Input, c Context) domain.Prompt {
	var b strings.Builder
	b.WriteString("## 分析任务\n")
	fmt.Fprintf(&b, "原始查询：%s\n", in.Query)
	if in.Entity != "" {
		fmt.Fprintf(&b, "目标企业：%s\n", in.Entity)
	}
	scenarioName := "通用企业分析"
	if in.Rule != nil {
		scenarioName = in.Rule.DisplayName
	}
	fmt.Fprintf(&b, "分析场景：%s\n\n", scenarioName)

	b.WriteString("## 场景分析要求\n")
	b.WriteString(Guidance(in.Rule))
	b.WriteString("\n")

	b.WriteString("## 可用信息汇总\n")
	b.WriteString(c.Text)
	b.WriteString("\n")

	if c.ExternalCount > 0 && in.Decision != nil {
		b.WriteString("## 网络搜索信息说明\n")
		fmt.Fprintf(&b, "- 搜索类型: %s\n", in.Decision.Type)
		fmt.Fprintf(&b, "- 搜索置信度: %.2f\n", in.Decision.Confidence)
		b.WriteString("- 请特别关注网络信息的时效性和权威性\n\n")
	}

	b.WriteString("## 输出格式要求\n")
	b.WriteString("请严格按照以下JSON格式输出，只输出JSON，不要输出其他内容：\n")
	var schema *scenario.Schema
	if in.Rule != nil {
		schema = &in.Rule.Schema
	}
	b.WriteString(scenario.Template(schema))
	b.WriteString("\n\n")

	if in.Rule != nil && len(in.Rule.OutputRequirements) > 0 {
		b.WriteString("## 输出要求\n")
		for i, req := range in.Rule.OutputRequirements {
			fmt.Fprintf(&b, "%d. %s\n", i+1, req)
		}
		b.WriteString("\n")
	}

	b.WriteString("## 重要提示\n")
	for i, note := range closingNotes {
		fmt.Fprintf(&b, "%d. %s\n", i+1, note)
	}

	return domain.Prompt{System: SystemRole(in.Rule), User: b.String()}
}

// SystemRole is the generator persona for a scenario.
func SystemRole(r *scenario.Rule) string {
	if r == nil {
		return genericRole
	}
	return fmt.Sprintf("你是专业的%s专家，精通%s。\n你必须严格按照场景要求进行分析，确保分析的专业性和深度。",
		r.DisplayName, r.Framework)
}

// Guidance renders the scenario's analysis dimensions and template outline.
func Guidance(r *scenario.Rule) string {
	if r == nil {
		return "请基于提供的所有信息进行全面、深入的分析。\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "【%s】\n", r.Framework)
	for i, d := range r.Dimensions {
		fmt.Fprintf(&b, "%d. %s：\n", i+1, d.Title)
		for _, item := range d.Subsections {
			fmt.Fprintf(&b, "   - %s\n", item)
		}
	}
	b.WriteString("\n【分析结构】\n")
	for _, sec := range r.Template {
		fmt.Fprintf(&b, "%s：%s\n", sec.Title, strings.Join(sec.Subsections, "、"))
	}
	b.WriteString("\n【重点关注】\n")
	for _, fa := range r.FocusAreas[:min(guidanceFocusAreas, len(r.FocusAreas))] {
		fmt.Fprintf(&b, "- %s\n", fa)
	}
	return b.String()
}
