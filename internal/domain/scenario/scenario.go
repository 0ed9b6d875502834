// Package scenario is the static registry of analysis scenarios. The table is
// built at package init and never mutated afterwards.
package scenario

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/corpintel/internal/domain"
)

// ID identifies one of the supported analysis scenarios.
type ID string

const (
	// Withdrawal analyses why an IPO application was withdrawn or rejected.
	Withdrawal ID = "withdrawal"
	// Tutoring analyses companies stuck in long pre-IPO tutoring.
	Tutoring ID = "tutoring"
	// Relationship analyses upstream/downstream related-party networks.
	Relationship ID = "relationship"
)

// Default is used when a scenario cannot be resolved.
const Default = Withdrawal

// RiskMetric is a weighted risk indicator. Weights of one rule sum to 1.0 by convention.
type RiskMetric struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// Section is a titled outline entry with subsection titles.
type Section struct {
	Title       string   `json:"title"`
	Subsections []string `json:"subsections"`
}

// Rule describes one analysis scenario.
type Rule struct {
	ID                 ID           `json:"id"`
	DisplayName        string       `json:"display_name"`
	Description        string       `json:"description"`
	Framework          string       `json:"framework"`
	FocusAreas         []string     `json:"focus_areas"`
	RiskMetrics        []RiskMetric `json:"risk_metrics"`
	Template           []Section    `json:"analysis_template"`
	Dimensions         []Section    `json:"dimensions"`
	OutputRequirements []string     `json:"output_requirements"`
	// BoostKeywords raise fused scores of passages mentioning them.
	BoostKeywords []string `json:"-"`
	// DetectKeywords identify the scenario in a free-text query.
	DetectKeywords []string `json:"-"`
	// SearchKeywords are appended to external search queries.
	SearchKeywords []string `json:"-"`
	// DocumentType restricts the semantic strategy; empty means no filter.
	DocumentType string `json:"-"`
	Schema       Schema `json:"-"`
}

// All returns the rules in registry order.
func All() []*Rule {
	out := make([]*Rule, 0, len(order))
	for _, id := range order {
		out = append(out, registry[id])
	}
	return out
}

// Get returns the rule for a known ID.
func Get(id ID) (*Rule, bool) {
	r, ok := registry[id]
	return r, ok
}

// Lookup finds a rule by ID, display name, or schema key.
func Lookup(s string) (*Rule, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	if r, ok := registry[ID(strings.ToLower(s))]; ok {
		return r, true
	}
	for _, id := range order {
		r := registry[id]
		if r.DisplayName == s || r.Schema.Key == s {
			return r, true
		}
	}
	return nil, false
}

// Resolve returns the rule for s. An empty s yields (nil, nil): no scenario.
// An unknown s yields the default rule and an error wrapping domain.ErrUnknownScenario.
func Resolve(s string) (*Rule, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	if r, ok := Lookup(s); ok {
		return r, nil
	}
	return registry[Default], fmt.Errorf("%w: %q, using %s", domain.ErrUnknownScenario, s, Default)
}

// ParseID validates a scenario identifier or display name.
func ParseID(s string) (ID, error) {
	r, ok := Lookup(s)
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownScenario, s)
	}
	return r.ID, nil
}

// TotalWeight sums the risk metric weights.
func (r *Rule) TotalWeight() float64 {
	var sum float64
	for _, m := range r.RiskMetrics {
		sum += m.Weight
	}
	return sum
}

var order = []ID{Withdrawal, Tutoring, Relationship}

var registry = map[ID]*Rule{
	Withdrawal: {
		ID:          Withdrawal,
		DisplayName: "撤否企业分析",
		Description: "分析被撤否企业的原因、问题和整改建议",
		Framework:   "三维度分析框架（企业层面-中介机构层面-监管审核层面）",
		FocusAreas: []string{
			"现场检查经历及问题",
			"审核问询重点及回复质量",
			"财务数据真实性及异常",
			"内部控制有效性缺陷",
			"持续盈利能力疑虑",
			"信息披露合规性问题",
			"行业政策与定位匹配度",
			"关联交易与独立性",
		},
		RiskMetrics: []RiskMetric{
			{"现场检查风险指数", 0.3},
			{"财务异常指标数", 0.25},
			{"问询回复质量评分", 0.2},
			{"内控缺陷严重程度", 0.15},
			{"行业监管风险", 0.1},
		},
		Template: []Section{
			{"撤否原因深度剖析", []string{"主要撤否原因归类分析", "关键问题发生时间线与影响", "同类企业对比参考"}},
			{"审核过程还原", []string{"审核轮次与问询重点演变", "企业回复与整改措施评估", "监管关注点变化趋势"}},
			{"风险评估与预警", []string{"撤否风险等级综合评估", "问题可整改性分析", "重新申报时间预测"}},
		},
		Dimensions: []Section{
			{"企业层面", []string{
				"财务数据真实性核查（收入确认、成本核算、毛利率异常等）",
				"内部控制有效性评估（资金管理、关联交易决策等）",
				"持续经营能力分析（业绩趋势、客户稳定性等）",
				"信息披露质量检查（招股书一致性、风险提示等）",
			}},
			{"中介机构层面", []string{
				"保荐机构执业质量（尽职调查充分性）",
				"审计机构工作质量（审计程序适当性）",
				"律师核查充分性（法律事项完整性）",
			}},
			{"监管审核层面", []string{
				"现场检查发现问题（主要违规事项）",
				"审核问询重点演变（监管关注点变化）",
				"撤否原因深度剖析（直接触发事件）",
			}},
		},
		OutputRequirements: []string{
			"必须明确标注信息来源（本地文档/网络信息）",
			"每个分析结论需附带证据支持",
			"风险提示需量化评估",
			"提供具体整改建议",
			"包含重新上市可行性分析",
		},
		BoostKeywords:  []string{"撤否", "审核", "问询", "证监会", "现场检查", "财务造假", "内控"},
		DetectKeywords: []string{"撤否", "撤销", "终止审核", "审核终止", "撤回", "ipo失败", "上市失败", "撤否原因"},
		SearchKeywords: []string{"撤否原因", "审核问题", "证监会"},
		DocumentType:   "财务报告",
		Schema:         Schema{Key: "withdrawal_analysis", Fields: []Field{
			Strings("main_reasons", "主要原因"),
			Objects("timeline",
				String("date", "YYYY-MM-DD"),
				String("event", "事件描述"),
				String("type", "类型"),
				String("impact", "影响程度"),
			),
			Strings("inquiry_focus", "问询重点"),
			String("reapply_prediction", "预计重新申报时间"),
			String("success_probability", "重新上市成功率"),
		}},
	},
	Tutoring: {
		ID:          Tutoring,
		DisplayName: "长期辅导企业分析",
		Description: "分析长期辅导企业的上市障碍和可行性",
		Framework:   "三阶段评估模型（辅导进度-障碍诊断-上市可行性）",
		FocusAreas: []string{
			"辅导备案时间与进度",
			"辅导机构变更及原因",
			"财务数据波动与趋势",
			"法律合规问题整改",
			"行业竞争地位变化",
			"募投项目合理性",
			"实际控制人稳定性",
			"信息披露一致性",
		},
		RiskMetrics: []RiskMetric{
			{"辅导停滞风险指数", 0.35},
			{"财务规范度评分", 0.25},
			{"法律障碍严重程度", 0.2},
			{"行业前景匹配度", 0.15},
			{"团队稳定性风险", 0.05},
		},
		Template: []Section{
			{"辅导历程诊断", []string{"辅导阶段划分与关键节点", "主要障碍问题时间线", "中介机构工作质量评估"}},
			{"上市障碍分析", []string{"财务规范性问题清单", "法律合规风险点", "业务独立性缺陷", "行业定位匹配度"}},
			{"可行性评估", []string{"近期上市可能性预测", "必要整改措施建议", "替代方案分析（并购/新三板等）"}},
		},
		Dimensions: []Section{
			{"辅导进度诊断", []string{
				"辅导历程时间线（备案时间、各阶段情况）",
				"中介机构变更及原因（保荐机构、审计机构等）",
				"主要工作内容质量评估（辅导报告、整改情况）",
			}},
			{"障碍深度分析", []string{
				"财务规范性问题（会计政策、收入确认等）",
				"法律合规障碍（诉讼、处罚、知识产权等）",
				"业务独立性缺陷（关联交易、同业竞争等）",
				"行业定位问题（板块匹配度、政策支持度）",
			}},
			{"上市可行性评估", []string{
				"近期上市可能性预测",
				"必要整改措施建议",
				"替代方案分析（新三板、并购重组等）",
			}},
		},
		OutputRequirements: []string{
			"按时间线整理辅导历程",
			"量化评估各项障碍严重程度",
			"提供分阶段的整改路线图",
			"预测不同情景下的时间表",
		},
		BoostKeywords:  []string{"辅导", "备案", "上市", "IPO", "保荐", "中介"},
		DetectKeywords: []string{"长期辅导", "辅导备案", "辅导期", "辅导超过", "辅导时间", "辅导过程", "辅导企业"},
		SearchKeywords: []string{"辅导备案", "IPO"},
		DocumentType:   "财务报告",
		Schema:         Schema{Key: "tutoring_analysis", Fields: []Field{
			String("start_date", "辅导开始时间"),
			Number("duration_months"),
			String("current_stage", "当前阶段"),
			Objects("ipo_obstacles",
				String("type", "障碍类型"),
				String("severity", "严重程度"),
				String("description", "具体描述"),
			),
			Object("feasibility_assessment",
				String("short_term_possibility", "近期上市可能性"),
				Strings("key_prerequisites", "前提条件"),
			),
		}},
	},
	Relationship: {
		ID:          Relationship,
		DisplayName: "上下游企业分析",
		Description: "分析上下游关联企业的关系网络和风险传导",
		Framework:   "四层次关联分析（股权-业务-人员-资金）",
		FocusAreas: []string{
			"股权结构穿透与实际控制人",
			"关联方交易规模与公允性",
			"客户供应商集中度风险",
			"同业竞争与利益冲突",
			"资金往来与担保情况",
			"人员兼职与共同投资",
			"技术合作与知识产权",
			"历史重组与业务剥离",
		},
		RiskMetrics: []RiskMetric{
			{"关联交易依赖度", 0.3},
			{"客户集中风险指数", 0.25},
			{"同业竞争严重程度", 0.2},
			{"资金占用风险", 0.15},
			{"人员独立性风险", 0.1},
		},
		Template: []Section{
			{"关联网络图谱分析", []string{"股权控制关系可视化分析", "业务往来依赖度评估", "关键人员重叠情况"}},
			{"风险传导机制", []string{"财务风险传导路径", "经营风险关联影响", "合规风险连带效应"}},
			{"独立性整改评估", []string{"关联交易规范方案", "业务资产重组建议", "人员机构分离措施"}},
		},
		Dimensions: []Section{
			{"股权关联层", []string{"实际控制人穿透核查", "交叉持股和一致行动关系", "历史股权变更合规性"}},
			{"业务关联层", []string{
				"关联交易公允性（价格、条款、结算方式）",
				"客户供应商依赖度分析（集中度、稳定性）",
				"同业竞争识别和影响",
			}},
			{"人员关联层", []string{"关键人员兼职情况", "共同投资和利益关系", "历史任职关联性"}},
			{"资金关联层", []string{"资金往来和担保情况", "资产租赁和共享安排", "其他潜在利益输送"}},
		},
		OutputRequirements: []string{
			"提供关联关系结构图描述",
			"量化分析各项关联指标",
			"评估风险传导的可能性与影响",
			"提供具体的独立性整改方案",
		},
		BoostKeywords: []string{"关联", "股权", "交易", "控制", "投资", "股东"},
		DetectKeywords: []string{
			"关系网", "关联企业", "股权结构", "控股", "持股", "关联方", "关联交易",
			"上下游", "供应商", "客户", "供应链", "产业链", "业务往来", "关联关系",
		},
		SearchKeywords: []string{"关联企业", "投资关系"},
		DocumentType:   "报告文档",
		Schema:         Schema{Key: "relationship_analysis", Fields: []Field{
			Number("entity_count"),
			Number("relation_count"),
			Objects("relations",
				String("entity_a", "企业A"),
				String("entity_b", "企业B"),
				String("type", "关系类型"),
				String("risk_level", "风险等级"),
			),
			Strings("independence_issues", "独立性问题"),
			Object("risk_transmission_analysis",
				Objects("paths",
					String("from", "源头"),
					String("to", "目标"),
					String("mechanism", "传导机制"),
				),
			),
		}},
	},
}
