package chi

import (
	"github.com/kailas-cloud/corpintel/internal/domain/candidate"
	"github.com/kailas-cloud/corpintel/internal/domain/evidence"
	"github.com/kailas-cloud/corpintel/internal/domain/scenario"
	"github.com/kailas-cloud/corpintel/internal/usecase/analysis"
	"github.com/kailas-cloud/corpintel/internal/usecase/ingest"
)

// AnalyzeRequest is the body of POST /v1/analyze and POST /v1/retrieve.
type AnalyzeRequest struct {
	Query    string `json:"query"`
	Entity   string `json:"entity,omitempty"`
	Scenario string `json:"scenario,omitempty"`
	// Search is "auto" (default), "always" or "never".
	Search string `json:"search,omitempty"`
}

func (r AnalyzeRequest) toDomain() (analysis.Request, error) {
	pref, err := evidence.ParsePreference(r.Search)
	if err != nil {
		return analysis.Request{}, err
	}
	return analysis.Request{
		Query:      r.Query,
		Entity:     r.Entity,
		Scenario:   r.Scenario,
		Preference: pref,
	}, nil
}

// Passage is one fused evidence item.
type Passage struct {
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
	Strategy   string         `json:"strategy"`
	Similarity float64        `json:"similarity"`
	Score      float64        `json:"score"`
}

// RetrieveResponse is the body of POST /v1/retrieve.
type RetrieveResponse struct {
	Query          string            `json:"query"`
	Entity         string            `json:"entity"`
	Scenario       *scenario.ID      `json:"scenario"`
	Local          []Passage         `json:"local"`
	External       []Passage         `json:"external"`
	SearchDecision evidence.Decision `json:"search_decision"`
}

func retrieveToDTO(ev *analysis.Evidence) RetrieveResponse {
	resp := RetrieveResponse{
		Query:          ev.Query,
		Entity:         ev.Entity,
		Local:          passagesToDTO(ev.Local),
		External:       passagesToDTO(ev.External),
		SearchDecision: ev.Decision,
	}
	if ev.Rule != nil {
		id := ev.Rule.ID
		resp.Scenario = &id
	}
	return resp
}

func passagesToDTO(fused []candidate.Fused) []Passage {
	out := make([]Passage, len(fused))
	for i := range fused {
		f := &fused[i]
		md := make(map[string]any, len(f.Metadata.Tags)+len(f.Metadata.Numerics))
		for k, v := range f.Metadata.Tags {
			md[k] = v
		}
		for k, v := range f.Metadata.Numerics {
			md[k] = v
		}
		out[i] = Passage{
			Content:    f.Content,
			Metadata:   md,
			Strategy:   string(f.Strategy),
			Similarity: f.Blended,
			Score:      f.Score,
		}
	}
	return out
}

// AddDocumentsRequest is the body of POST /v1/documents.
type AddDocumentsRequest struct {
	Documents []ingest.Record `json:"documents"`
}

// CountResponse is the body of GET /v1/documents/count.
type CountResponse struct {
	Count int `json:"count"`
}

// ScenarioListResponse is the body of GET /v1/scenarios.
type ScenarioListResponse struct {
	Items []*scenario.Rule `json:"items"`
}
