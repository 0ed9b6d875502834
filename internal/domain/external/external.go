// Package external defines results returned by the external search collaborator.
package external

import (
	"github.com/kailas-cloud/corpintel/internal/domain/candidate"
	"github.com/kailas-cloud/corpintel/internal/domain/document"
)

// Result is one external search hit.
type Result struct {
	Content        string  `json:"content"`
	Title          string  `json:"title"`
	Source         string  `json:"source"`
	URL            string  `json:"url,omitempty"`
	PublishDate    string  `json:"publish_date"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Query is the input of one external search.
type Query struct {
	Text     string
	Entity   string
	Scenario string
	Model    string
}

// ToCandidate converts a result into a web-strategy candidate.
// Relevance outside [0,1] is clamped; a missing score counts as 0.5.
func (r Result) ToCandidate() candidate.Candidate {
	score := r.RelevanceScore
	switch {
	case score <= 0:
		score = 0.5
	case score > 1:
		score = 1
	}

	meta := document.Metadata{Tags: map[string]string{
		document.FieldTitle:       r.Title,
		document.FieldSource:      r.Source,
		document.FieldPublishDate: r.PublishDate,
	}}
	if r.URL != "" {
		meta.Tags[document.FieldURL] = r.URL
	}

	return candidate.Candidate{
		Content:    r.Content,
		Metadata:   meta,
		Similarity: score,
		Strategy:   candidate.StrategyWeb,
	}
}

// ToCandidates converts results, skipping empty content.
func ToCandidates(results []Result) []candidate.Candidate {
	out := make([]candidate.Candidate, 0, len(results))
	for _, r := range results {
		if r.Content == "" {
			continue
		}
		out = append(out, r.ToCandidate())
	}
	return out
}
