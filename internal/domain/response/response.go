// Package response defines the structured analysis returned to callers.
package response

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/corpintel/internal/domain/scenario"
)

// Tier records which validator stage produced a response.
type Tier string

// Validator tiers in fallback order.
const (
	TierStrict    Tier = "strict"
	TierHeuristic Tier = "heuristic"
	TierEnvelope  Tier = "envelope"
	TierError     Tier = "error"
)

// Risk levels.
const (
	RiskHigh   = "高"
	RiskMedium = "中"
	RiskLow    = "低"
)

// DetailedAnalysis splits analysis points by evidence origin.
type DetailedAnalysis struct {
	LocalBased []string `json:"local_based"`
	WebBased   []string `json:"web_based"`
	Integrated []string `json:"integrated"`
}

// RiskAssessment is the overall risk verdict.
type RiskAssessment struct {
	IdentifiedRisks []string `json:"identified_risks"`
	RiskLevel       string   `json:"risk_level"`
	Rationale       string   `json:"rationale"`
}

// Response is a fully shaped structured response. The scenario sub-object is
// serialized inline under ScenarioKey.
type Response struct {
	Summary          string           `json:"summary"`
	DetailedAnalysis DetailedAnalysis `json:"detailed_analysis"`
	KeyFindings      []string         `json:"key_findings"`
	RiskAssessment   RiskAssessment   `json:"risk_assessment"`
	Recommendations  []string         `json:"recommendations"`
	Tier             Tier             `json:"parse_tier"`

	ScenarioKey      string         `json:"-"`
	ScenarioAnalysis map[string]any `json:"-"`
}

// New returns an empty response shaped for the given schema (nil for none).
func New(schema *scenario.Schema, tier Tier) *Response {
	r := &Response{Tier: tier}
	if schema != nil && schema.Key != "" {
		r.ScenarioKey = schema.Key
		r.ScenarioAnalysis = schema.Zero()
	}
	r.fill()
	return r
}

// Envelope wraps raw generator text that could not be parsed.
func Envelope(raw string, schema *scenario.Schema) *Response {
	r := New(schema, TierEnvelope)
	r.Summary = raw
	return r
}

// Error builds the error envelope; the summary always carries the error text.
func Error(err error, schema *scenario.Schema) *Response {
	r := New(schema, TierError)
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	r.Summary = fmt.Sprintf("分析过程中遇到错误: %s", msg)
	r.RiskAssessment.RiskLevel = RiskHigh
	r.RiskAssessment.Rationale = "分析未完成"
	return r
}

// fill replaces nil slices so every list serializes as [].
func (r *Response) fill() {
	for _, s := range []*[]string{
		&r.DetailedAnalysis.LocalBased,
		&r.DetailedAnalysis.WebBased,
		&r.DetailedAnalysis.Integrated,
		&r.KeyFindings,
		&r.RiskAssessment.IdentifiedRisks,
		&r.Recommendations,
	} {
		if *s == nil {
			*s = []string{}
		}
	}
}

// MarshalJSON emits the base fields plus the scenario sub-object.
func (r Response) MarshalJSON() ([]byte, error) {
	type plain Response
	r.fill()
	base, err := json.Marshal(plain(r))
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}
	if r.ScenarioKey == "" {
		return base, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}
	sub := r.ScenarioAnalysis
	if sub == nil {
		sub = map[string]any{}
	}
	raw, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", r.ScenarioKey, err)
	}
	fields[r.ScenarioKey] = raw
	return json.Marshal(fields)
}
