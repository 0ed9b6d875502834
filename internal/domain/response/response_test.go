package response

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/corpintel/internal/domain/scenario"
)

func decode(t *testing.T, r *Response) map[string]any {
	t.Helper()
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}

func TestMarshal_AllKeysPresent(t *testing.T) {
	rule, _ := scenario.Get(scenario.Withdrawal)
	m := decode(t, New(&rule.Schema, TierStrict))

	for _, k := range scenario.Required() {
		if _, ok := m[k]; !ok {
			t.Errorf("missing %s", k)
		}
	}
	sub, ok := m["withdrawal_analysis"].(map[string]any)
	if !ok {
		t.Fatalf("withdrawal_analysis = %#v", m["withdrawal_analysis"])
	}
	if _, ok := sub["timeline"].([]any); !ok {
		t.Errorf("timeline should be a list, got %#v", sub["timeline"])
	}
	if l, ok := m["key_findings"].([]any); !ok || len(l) != 0 {
		t.Errorf("key_findings = %#v", m["key_findings"])
	}
	if m["parse_tier"] != "strict" {
		t.Errorf("parse_tier = %v", m["parse_tier"])
	}
}

func TestMarshal_NoScenario(t *testing.T) {
	m := decode(t, &Response{Summary: "x"})
	if len(m) != len(scenario.Required())+1 {
		t.Errorf("unexpected keys: %v", m)
	}
	if l, ok := m["recommendations"].([]any); !ok || len(l) != 0 {
		t.Errorf("recommendations = %#v", m["recommendations"])
	}
}

func TestError(t *testing.T) {
	r := Error(errors.New("boom"), nil)
	if !strings.Contains(r.Summary, "boom") {
		t.Errorf("summary = %q", r.Summary)
	}
	if r.Tier != TierError || r.RiskAssessment.RiskLevel != RiskHigh {
		t.Errorf("unexpected envelope: %+v", r)
	}
	if r := Error(nil, nil); r.Summary == "" {
		t.Error("empty summary for nil error")
	}
}
