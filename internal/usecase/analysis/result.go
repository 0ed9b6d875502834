package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/kailas-cloud/corpintel/internal/domain/candidate"
	"github.com/kailas-cloud/corpintel/internal/domain/evidence"
	"github.com/kailas-cloud/corpintel/internal/domain/response"
	"github.com/kailas-cloud/corpintel/internal/domain/scenario"
	"github.com/kailas-cloud/corpintel/internal/usecase/assemble"
)

// SourceStatistics counts the evidence that reached the context.
type SourceStatistics struct {
	Local    int            `json:"local_count"`
	External int            `json:"external_count"`
	BySource map[string]int `json:"by_source"`
}

// ScenarioInfo identifies the scenario a result was produced under.
type ScenarioInfo struct {
	ID          scenario.ID `json:"id"`
	DisplayName string      `json:"display_name"`
	Framework   string      `json:"framework"`
}

// Result is an enriched structured response.
type Result struct {
	Response  *response.Response
	Decision  evidence.Decision
	Entity    string
	Scenario  *ScenarioInfo
	Sources   SourceStatistics
	Timestamp time.Time
	Duration  time.Duration

	Context  assemble.Context
	Local    []candidate.Fused
	External []candidate.Fused
}

// MarshalJSON emits the response fields followed by the enrichment fields.
func (r Result) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(r.Response)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}

	extra := map[string]any{
		"source_statistics":  r.Sources,
		"scenario_info":      r.Scenario,
		"search_decision":    r.Decision,
		"entity":             r.Entity,
		"analysis_timestamp": r.Timestamp.Format(time.RFC3339),
		"processing_time":    math.Round(r.Duration.Seconds()*1000) / 1000,
	}
	for k, v := range extra {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", k, err)
		}
		fields[k] = raw
	}
	return json.Marshal(fields)
}

const (
	sourceLocal = "本地文档"
	sourceWeb   = "网络信息"
)

func statistics(local, external []candidate.Fused) SourceStatistics {
	st := SourceStatistics{
		Local:    len(local),
		External: len(external),
		BySource: make(map[string]int),
	}
	count := func(fs []candidate.Fused, fallback string) {
		for i := range fs {
			src := fs[i].Metadata.Source()
			if src == "" {
				src = fallback
			}
			st.BySource[src]++
		}
	}
	count(local, sourceLocal)
	count(external, sourceWeb)
	return st
}
