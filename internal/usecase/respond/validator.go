// Package respond turns raw generator output into a fully shaped structured
// response via an explicit fallback state machine.
package respond

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/corpintel/internal/domain"
	"github.com/kailas-cloud/corpintel/internal/domain/response"
	"github.com/kailas-cloud/corpintel/internal/domain/scenario"
	"github.com/kailas-cloud/corpintel/internal/logger"
	"github.com/kailas-cloud/corpintel/internal/metrics"
)

var (
	errNoObject    = errors.New("no JSON object found")
	errNoSummary   = errors.New("summary missing")
	errNoHeadings  = errors.New("no recognizable sections")
	errEmptyOutput = errors.New("empty generator output")
)

// step is one state of the validator. It either produces a response or
// reports why the next state must run.
type step struct {
	tier response.Tier
	run  func(raw string, schema *scenario.Schema) (*response.Response, error)
}

// steps are the states in transition order: strict -> heuristic -> envelope.
// The error envelope is the terminal state and cannot fail.
var steps = []step{
	{response.TierStrict, strictParse},
	{response.TierHeuristic, heuristicStep},
	{response.TierEnvelope, envelopeStep},
}

// Validate parses raw into a response for rule (nil for no scenario). Every
// returned response carries all required keys with the right shapes.
func Validate(ctx context.Context, raw string, rule *scenario.Rule) *response.Response {
	var schema *scenario.Schema
	if rule != nil {
		schema = &rule.Schema
	}

	log := logger.FromContext(ctx)
	var errs []error
	for _, s := range steps {
		r, err := s.run(raw, schema)
		if err == nil {
			if len(errs) > 0 {
				log.Debug("Generator output needed fallback",
					zap.String("tier", string(s.tier)),
					zap.Error(errors.Join(errs...)),
				)
			}
			metrics.ResponseTierTotal.WithLabelValues(string(s.tier)).Inc()
			return r
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.tier, err))
	}

	err := fmt.Errorf("%w: %w", domain.ErrMalformedOutput, errors.Join(errs...))
	log.Warn("Generator output unusable", zap.Error(err))
	metrics.ResponseTierTotal.WithLabelValues(string(response.TierError)).Inc()
	return response.Error(err, schema)
}

func strictParse(raw string, schema *scenario.Schema) (*response.Response, error) {
	body, ok := outermostObject(stripFences(raw))
	if !ok {
		return nil, errNoObject
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(body), &obj); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if s, _ := obj["summary"].(string); strings.TrimSpace(s) == "" {
		return nil, errNoSummary
	}

	normalized := scenario.Normalize(obj, scenario.BaseFields)
	base := make(map[string]any, len(scenario.BaseFields))
	for _, f := range scenario.BaseFields {
		base[f.Name] = normalized[f.Name]
	}
	b, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	r := response.New(schema, response.TierStrict)
	if err := json.Unmarshal(b, r); err != nil {
		return nil, fmt.Errorf("shape: %w", err)
	}
	r.RiskAssessment.RiskLevel = normalizeRiskLevel(r.RiskAssessment.RiskLevel)

	if schema != nil {
		sub, _ := obj[schema.Key].(map[string]any)
		r.ScenarioAnalysis = scenario.Normalize(sub, schema.Fields)
	}
	r.Tier = response.TierStrict
	return r, nil
}

func heuristicStep(raw string, schema *scenario.Schema) (*response.Response, error) {
	r := response.New(schema, response.TierHeuristic)
	if !heuristicParse(raw, r) {
		return nil, errNoHeadings
	}
	return r, nil
}

func envelopeStep(raw string, schema *scenario.Schema) (*response.Response, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, errEmptyOutput
	}
	return response.Envelope(text, schema), nil
}

func normalizeRiskLevel(s string) string {
	l := strings.ToLower(strings.TrimSpace(s))
	switch {
	case l == "":
		return ""
	case strings.Contains(l, "高"), strings.Contains(l, "high"):
		return response.RiskHigh
	case strings.Contains(l, "低"), strings.Contains(l, "low"):
		return response.RiskLow
	case strings.Contains(l, "中"), strings.Contains(l, "medium"), strings.Contains(l, "moderate"):
		return response.RiskMedium
	}
	return s
}
