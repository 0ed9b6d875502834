package scenario

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/corpintel/internal/domain"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		in   string
		want ID
		ok   bool
	}{
		{"withdrawal", Withdrawal, true},
		{"TUTORING", Tutoring, true},
		{"撤否企业分析", Withdrawal, true},
		{"上下游企业分析", Relationship, true},
		{"relationship_analysis", Relationship, true},
		{"", "", false},
		{"unknown", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r, ok := Lookup(tt.in)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && r.ID != tt.want {
				t.Errorf("ID = %s, want %s", r.ID, tt.want)
			}
		})
	}
}

func TestResolve_UnknownFallsBackToDefault(t *testing.T) {
	r, err := Resolve("no-such-scenario")
	if !errors.Is(err, domain.ErrUnknownScenario) {
		t.Fatalf("expected ErrUnknownScenario, got %v", err)
	}
	if r == nil || r.ID != Default {
		t.Fatalf("expected default rule, got %+v", r)
	}
}

func TestResolve_Empty(t *testing.T) {
	r, err := Resolve("  ")
	if err != nil || r != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", r, err)
	}
}

func TestRegistry_Invariants(t *testing.T) {
	rules := All()
	if len(rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(rules))
	}
	for _, r := range rules {
		if n := len(r.FocusAreas); n < 6 || n > 8 {
			t.Errorf("%s: %d focus areas", r.ID, n)
		}
		if w := r.TotalWeight(); math.Abs(w-1.0) > 1e-9 {
			t.Errorf("%s: weights sum to %f", r.ID, w)
		}
		if r.Schema.Key == "" || len(r.Schema.Fields) == 0 {
			t.Errorf("%s: empty schema", r.ID)
		}
		if len(r.BoostKeywords) == 0 || len(r.DetectKeywords) == 0 {
			t.Errorf("%s: missing keywords", r.ID)
		}
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		scenario ID
		entity   string
	}{
		{"withdrawal", "分析欣强电子的撤否原因", Withdrawal, "欣强电子"},
		{"tutoring", "某某科技长期辅导的原因", Tutoring, "某某科技"},
		{"relationship", "华为的上下游供应商", Relationship, ""},
		{"stock code", "600000的关联交易", Relationship, "600000"},
		{"financial default", "国泰证券怎么样", Withdrawal, "国泰证券"},
		{"nothing", "今天天气", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := Extract(tt.query)
			if ex.Scenario != tt.scenario {
				t.Errorf("scenario = %q, want %q", ex.Scenario, tt.scenario)
			}
			if ex.Entity() != tt.entity {
				t.Errorf("entity = %q, want %q", ex.Entity(), tt.entity)
			}
		})
	}
}

func TestNormalize_FillsShape(t *testing.T) {
	r, _ := Get(Tutoring)
	got := Normalize(map[string]any{
		"duration_months": "18",
		"ipo_obstacles":   map[string]any{"type": "财务"},
		"extra":           true,
	}, r.Schema.Fields)

	if got["duration_months"] != 18.0 {
		t.Errorf("duration_months = %v", got["duration_months"])
	}
	obstacles, ok := got["ipo_obstacles"].([]any)
	if !ok || len(obstacles) != 1 {
		t.Fatalf("ipo_obstacles = %#v", got["ipo_obstacles"])
	}
	if obstacles[0].(map[string]any)["severity"] != "" {
		t.Errorf("missing nested field not filled")
	}
	fa, ok := got["feasibility_assessment"].(map[string]any)
	if !ok {
		t.Fatalf("feasibility_assessment = %#v", got["feasibility_assessment"])
	}
	if p, ok := fa["key_prerequisites"].([]string); !ok || len(p) != 0 {
		t.Errorf("key_prerequisites = %#v", fa["key_prerequisites"])
	}
	if got["extra"] != true {
		t.Errorf("unknown key dropped")
	}
}

func TestTemplate_IsValidJSON(t *testing.T) {
	for _, r := range All() {
		var v map[string]any
		if err := json.Unmarshal([]byte(Template(&r.Schema)), &v); err != nil {
			t.Fatalf("%s: %v", r.ID, err)
		}
		for _, k := range Required() {
			if _, ok := v[k]; !ok {
				t.Errorf("%s: template misses %s", r.ID, k)
			}
		}
		if _, ok := v[r.Schema.Key]; !ok {
			t.Errorf("%s: template misses %s", r.ID, r.Schema.Key)
		}
	}
	if err := json.Unmarshal([]byte(Template(nil)), new(map[string]any)); err != nil {
		t.Fatalf("base template: %v", err)
	}
}
